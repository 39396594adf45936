// Package event holds the wire contract: typed inbound commands decoded and
// validated once at the transport boundary, and outbound event names.
package event

// Inbound event names.
const (
	Register     = "register"
	CreateRoom   = "create-room"
	JoinRoom     = "join-room"
	LeaveRoom    = "leave-room"
	CloseRoom    = "close-room"
	SendMessage  = "send-message"
	GetMessages  = "get-messages"
	FileStart    = "file-start"
	FileChunk    = "file-chunk"
	FileComplete = "file-complete"
	FilePause    = "file-pause"
	FileResume   = "file-resume"
	FileCancel   = "file-cancel"
	CreateQuiz   = "create-quiz"
	JoinQuiz     = "join-quiz"
	SubmitAnswer = "submit-answer"
	EndQuiz      = "end-quiz"
	GetBoard     = "get-leaderboard"
	InitCall     = "init-call"
	AnswerCall   = "answer-call"
	ICECandidate = "ice-candidate"
	RejectCall   = "reject-call"
	EndCall      = "end-call"
	Ping         = "ping"
	WhoAmI       = "whoami"
)

// Outbound event names.
const (
	Connected        = "connected"
	UsersList        = "users-list"
	UserJoined       = "user-joined"
	UserUpdated      = "user-updated"
	RoomsList        = "rooms-list"
	RoomCreated      = "room-created"
	RoomJoined       = "room-joined"
	RoomLeft         = "room-left"
	RoomClosed       = "room-closed"
	NewMessage       = "new-message"
	RoomMessages     = "room-messages"
	FileStarted      = "file-started"
	FileProgress     = "file-progress"
	FilePaused       = "file-paused"
	FileResumed      = "file-resumed"
	FileCompleted    = "file-completed"
	FileCanceled     = "file-canceled"
	QuizzesList      = "quizzes-list"
	QuizCreated      = "quiz-created"
	QuizJoined       = "quiz-joined"
	AnswerSubmitted  = "answer-submitted"
	QuizStats        = "quiz-stats"
	LeaderboardReady = "leaderboard-updated"
	QuizEnded        = "quiz-ended"
	IncomingCall     = "incoming-call"
	CallAnswered     = "call-answered"
	CallCandidate    = "ice-candidate"
	CallRejected     = "call-rejected"
	CallEnded        = "call-ended"
	Pong             = "pong"
	WhoAmIReply      = "whoami"
	Error            = "error"
)
