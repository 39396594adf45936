package event

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	ErrBadPayload   = domain.Validation("bad_payload")
	ErrUnknownEvent = domain.Validation("unknown_event")
)

var validate = validator.New()

var factories = map[string]func() Command{
	Register:     func() Command { return &RegisterCommand{} },
	CreateRoom:   func() Command { return &CreateRoomCommand{} },
	JoinRoom:     func() Command { return &JoinRoomCommand{} },
	LeaveRoom:    func() Command { return &LeaveRoomCommand{} },
	CloseRoom:    func() Command { return &CloseRoomCommand{} },
	SendMessage:  func() Command { return &SendMessageCommand{} },
	GetMessages:  func() Command { return &GetMessagesCommand{} },
	FileStart:    func() Command { return &FileStartCommand{} },
	FileChunk:    func() Command { return &FileChunkCommand{} },
	FileComplete: func() Command { return &FileCompleteCommand{} },
	FilePause:    func() Command { return &FilePauseCommand{} },
	FileResume:   func() Command { return &FileResumeCommand{} },
	FileCancel:   func() Command { return &FileCancelCommand{} },
	CreateQuiz:   func() Command { return &CreateQuizCommand{} },
	JoinQuiz:     func() Command { return &JoinQuizCommand{} },
	SubmitAnswer: func() Command { return &SubmitAnswerCommand{} },
	EndQuiz:      func() Command { return &EndQuizCommand{} },
	GetBoard:     func() Command { return &GetLeaderboardCommand{} },
	InitCall:     func() Command { return &InitCallCommand{} },
	AnswerCall:   func() Command { return &AnswerCallCommand{} },
	ICECandidate: func() Command { return &ICECandidateCommand{} },
	RejectCall:   func() Command { return &RejectCallCommand{} },
	EndCall:      func() Command { return &EndCallCommand{} },
	Ping:         func() Command { return &PingCommand{} },
	WhoAmI:       func() Command { return &WhoAmICommand{} },
}

// Decode turns one inbound frame into a typed command. The frame is a flat
// JSON object whose "type" selects the command.
func Decode(data []byte) (Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrBadPayload
	}
	factory, ok := factories[env.Type]
	if !ok {
		return nil, ErrUnknownEvent
	}
	cmd := factory()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, ErrBadPayload
	}
	if err := validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, domain.ErrMissingFields
		}
		return nil, ErrBadPayload
	}
	return cmd, nil
}
