package orch

import (
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
)

type errorPayload struct {
	Message string `json:"message"`
}

type connectedPayload struct {
	SocketID domain.ConnID `json:"socketId"`
}

type whoAmIPayload struct {
	User    domain.User     `json:"user"`
	Rooms   []domain.RoomID `json:"rooms"`
	Quizzes []domain.QuizID `json:"quizzes"`
}

type roomCreatedPayload struct {
	Room    app.RoomSummary `json:"room"`
	Message string          `json:"message"`
}

type roomMemberPayload struct {
	RoomID domain.RoomID   `json:"roomId"`
	UID    domain.UserID   `json:"uid"`
	Users  []domain.UserID `json:"users"`
}

type roomClosedPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type newMessagePayload struct {
	RoomID  domain.RoomID  `json:"roomId"`
	Message domain.Message `json:"message"`
}

type roomMessagesPayload struct {
	RoomID   domain.RoomID    `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

type filePayload struct {
	FileID   domain.FileID   `json:"fileId"`
	RoomID   domain.RoomID   `json:"roomId,omitempty"`
	To       domain.UserID   `json:"to,omitempty"`
	Sender   domain.UserID   `json:"sender"`
	File     domain.FileMeta `json:"file"`
	Progress int             `json:"progress"`
	Received int64           `json:"received"`
	Message  *domain.Message `json:"message,omitempty"`
}

type quizCreatedPayload struct {
	app.QuizView
	Message string `json:"message"`
}

type quizUsersPayload struct {
	QuizID domain.QuizID                    `json:"quizId"`
	UID    domain.UserID                    `json:"uid"`
	Users  map[domain.UserID]domain.Attempt `json:"users"`
}

type answerPayload struct {
	QuizID     domain.QuizID     `json:"quizId"`
	QuestionID domain.QuestionID `json:"questionId"`
	UID        domain.UserID     `json:"uid"`
	Response   string            `json:"response"`
}

type quizStatsPayload struct {
	QuizID  domain.QuizID  `json:"quizId"`
	Attempt domain.Attempt `json:"attempt"`
	Correct bool           `json:"correct"`
}

type leaderboardPayload struct {
	QuizID      domain.QuizID             `json:"quizId"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

func target(t event.CallTarget) app.CallTarget {
	return app.CallTarget{Conn: t.To, UID: t.ToUID}
}
