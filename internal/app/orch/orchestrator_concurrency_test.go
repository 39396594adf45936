package orch

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_ConcurrentDisconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Given
	h.gw.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().UpdateUserStatus(gomock.Any(), domain.UserID("alice"), domain.StatusOffline, gomock.Any()).Return(nil).Times(1)
	h.join("c1", "alice")
	h.join("c2", "bob")
	h.tr.reset()
	h.tr.disconnect("c1")

	// When the read and write pumps both report the drop
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.o.Disconnect(h.ctx, "c1")
		}()
	}
	wg.Wait()

	// Then
	req.Equal(1, countOf(h.tr.types("c2"), event.UserUpdated))
	u, ok := h.o.Directory.ByUID("alice")
	req.True(ok)
	req.Equal(domain.StatusOffline, u.Status)
}

func TestOrchestrator_ConcurrentSubmitAnswer(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.allowPersistence()
	h.join("c1", "alice")
	h.join("c2", "bob")

	h.dispatch("c1", &event.CreateQuizCommand{
		Name:        "Go basics",
		Description: "warm-up",
		StartDate:   h.clock.Now(),
		EndDate:     h.clock.Now().Add(time.Hour),
		UID:         "alice",
		Questions: []event.QuestionInput{
			{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, Answer: "4"},
			{ID: "q2", Prompt: "keyword?", Options: []string{"go", "async"}, Answer: "go"},
		},
	})
	ev, ok := h.tr.last("c1", event.QuizCreated)
	req.True(ok)
	quiz := ev.Data.(quizCreatedPayload).Quiz.ID
	h.dispatch("c2", &event.JoinQuizCommand{QuizCommand: event.QuizCommand{QuizID: quiz, UID: "bob"}})
	req.Empty(h.lastError("c2"))

	// When bob's answers arrive from several goroutines
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 20 {
				qid, response := domain.QuestionID("q1"), "4"
				if (g+i)%2 == 1 {
					qid, response = "q2", "async"
				}
				h.dispatch("c2", &event.SubmitAnswerCommand{QuizID: quiz, QuestionID: qid, UID: "bob", Response: response})
			}
		}()
	}
	wg.Wait()

	// Then
	req.Empty(h.lastError("c2"))
	board, err := h.o.Quizzes.Leaderboard(quiz)
	req.NoError(err)
	req.Len(board, 1)
	req.Equal(1, board[0].Correct)
	req.Equal(1, board[0].Incorrect)
	req.Equal(2, board[0].Answered)
}
