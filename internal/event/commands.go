package event

import (
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Command is one decoded and validated inbound event.
type Command interface {
	Name() string
}

type RegisterCommand struct {
	UID         domain.UserID `json:"uid" validate:"required,max=64"`
	DisplayName string        `json:"displayName" validate:"max=64"`
}

type CreateRoomCommand struct {
	Name        string        `json:"name" validate:"max=120"`
	Description string        `json:"description" validate:"max=500"`
	UID         domain.UserID `json:"uid" validate:"required"`
}

// RoomCommand carries the fields shared by join/leave/close.
type RoomCommand struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	UID    domain.UserID `json:"uid" validate:"required"`
}

type JoinRoomCommand struct{ RoomCommand }

type LeaveRoomCommand struct{ RoomCommand }

type CloseRoomCommand struct{ RoomCommand }

type SendMessageCommand struct {
	RoomID  domain.RoomID `json:"roomId" validate:"required"`
	UID     domain.UserID `json:"uid" validate:"required"`
	Message string        `json:"message" validate:"required,max=4000"`
}

type GetMessagesCommand struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
}

// FileStartCommand announces an upload. Room transfers carry RoomID, direct
// transfers carry To instead.
type FileStartCommand struct {
	FileID   domain.FileID `json:"fileId" validate:"required"`
	RoomID   domain.RoomID `json:"roomId" validate:"required_without=To"`
	To       domain.UserID `json:"to"`
	UID      domain.UserID `json:"uid" validate:"required"`
	FileName string        `json:"fileName" validate:"required"`
	FileSize int64         `json:"fileSize" validate:"gt=0,lte=1099511627776"`
	MimeType string        `json:"mimeType"`
}

// FileChunkCommand reports one received chunk. Size wins over len(Chunk).
type FileChunkCommand struct {
	FileID domain.FileID `json:"fileId" validate:"required"`
	Size   int64         `json:"size" validate:"gte=0"`
	Chunk  []byte        `json:"chunk"`
}

func (c *FileChunkCommand) Bytes() int64 {
	if c.Size > 0 {
		return c.Size
	}
	return int64(len(c.Chunk))
}

type FileCompleteCommand struct {
	FileID domain.FileID `json:"fileId" validate:"required"`
	URL    string        `json:"url"`
}

type FileCommand struct {
	FileID domain.FileID `json:"fileId" validate:"required"`
}

type FilePauseCommand struct{ FileCommand }

type FileResumeCommand struct{ FileCommand }

type FileCancelCommand struct{ FileCommand }

type QuestionInput struct {
	ID      domain.QuestionID `json:"id" validate:"required"`
	Prompt  string            `json:"question" validate:"required"`
	Options []string          `json:"options" validate:"min=2,dive,required"`
	Answer  string            `json:"answer" validate:"required"`
}

type CreateQuizCommand struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	StartDate   time.Time       `json:"startDate" validate:"required"`
	EndDate     time.Time       `json:"endDate" validate:"required"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
	UID         domain.UserID   `json:"uid" validate:"required"`
}

func (c *CreateQuizCommand) QuestionList() []domain.Question {
	out := make([]domain.Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		out = append(out, domain.Question{ID: q.ID, Prompt: q.Prompt, Options: q.Options, Answer: q.Answer})
	}
	return out
}

type QuizCommand struct {
	QuizID domain.QuizID `json:"quizId" validate:"required"`
	UID    domain.UserID `json:"uid" validate:"required"`
}

type JoinQuizCommand struct{ QuizCommand }

type EndQuizCommand struct{ QuizCommand }

type SubmitAnswerCommand struct {
	QuizID     domain.QuizID     `json:"quizId" validate:"required"`
	QuestionID domain.QuestionID `json:"questionId" validate:"required"`
	UID        domain.UserID     `json:"uid" validate:"required"`
	Response   string            `json:"response" validate:"required"`
}

type GetLeaderboardCommand struct {
	QuizID domain.QuizID `json:"quizId" validate:"required"`
}

// CallTarget addresses a signaling message: ToUID is resolved through the
// presence directory, otherwise To is taken as a connection id. Signaling is
// best-effort, so targets are not validated here.
type CallTarget struct {
	To    domain.ConnID `json:"to"`
	ToUID domain.UserID `json:"toUid"`
}

type InitCallCommand struct {
	CallTarget
	Offer webrtc.SessionDescription `json:"offer"`
}

type AnswerCallCommand struct {
	CallTarget
	Answer webrtc.SessionDescription `json:"answer"`
}

type ICECandidateCommand struct {
	CallTarget
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}

type RejectCallCommand struct{ CallTarget }

type EndCallCommand struct{ CallTarget }

type PingCommand struct{}

type WhoAmICommand struct{}

func (*RegisterCommand) Name() string       { return Register }
func (*CreateRoomCommand) Name() string     { return CreateRoom }
func (*JoinRoomCommand) Name() string       { return JoinRoom }
func (*LeaveRoomCommand) Name() string      { return LeaveRoom }
func (*CloseRoomCommand) Name() string      { return CloseRoom }
func (*SendMessageCommand) Name() string    { return SendMessage }
func (*GetMessagesCommand) Name() string    { return GetMessages }
func (*FileStartCommand) Name() string      { return FileStart }
func (*FileChunkCommand) Name() string      { return FileChunk }
func (*FileCompleteCommand) Name() string   { return FileComplete }
func (*FilePauseCommand) Name() string      { return FilePause }
func (*FileResumeCommand) Name() string     { return FileResume }
func (*FileCancelCommand) Name() string     { return FileCancel }
func (*CreateQuizCommand) Name() string     { return CreateQuiz }
func (*JoinQuizCommand) Name() string       { return JoinQuiz }
func (*SubmitAnswerCommand) Name() string   { return SubmitAnswer }
func (*EndQuizCommand) Name() string        { return EndQuiz }
func (*GetLeaderboardCommand) Name() string { return GetBoard }
func (*InitCallCommand) Name() string       { return InitCall }
func (*AnswerCallCommand) Name() string     { return AnswerCall }
func (*ICECandidateCommand) Name() string   { return ICECandidate }
func (*RejectCallCommand) Name() string     { return RejectCall }
func (*EndCallCommand) Name() string        { return EndCall }
func (*PingCommand) Name() string           { return Ping }
func (*WhoAmICommand) Name() string         { return WhoAmI }
