//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks
package core

import (
	"context"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// QuizRecord is the durable shape of a quiz together with its attempts.
type QuizRecord struct {
	Quiz     domain.Quiz
	Attempts []domain.Attempt
}

// Gateway is the durable store contract. Every method is idempotent under
// primary-key conflict and fails independently of the in-memory operation
// that triggered it.
type Gateway interface {
	SaveUser(ctx context.Context, user domain.User) error
	UpdateUserStatus(ctx context.Context, uid domain.UserID, status domain.Status, at time.Time) error
	GetAllUsers(ctx context.Context) ([]domain.User, error)

	SaveRoom(ctx context.Context, room domain.Room) error
	DeleteRoom(ctx context.Context, id domain.RoomID) error
	GetAllRooms(ctx context.Context) ([]domain.Room, error)
	SaveMessage(ctx context.Context, msg domain.Message) error

	SaveQuizAndAnswers(ctx context.Context, rec QuizRecord) error
	GetAllQuizzes(ctx context.Context) ([]QuizRecord, error)

	Close() error
}
