package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
)

func (o *Orchestrator) saveQuiz(ctx context.Context, id domain.QuizID) {
	rec, ok := o.Quizzes.Record(id)
	if !ok {
		return
	}
	o.persist("save quiz", o.Gateway.SaveQuizAndAnswers(ctx, rec))
}

func (o *Orchestrator) createQuiz(ctx context.Context, conn domain.ConnID, c *event.CreateQuizCommand) error {
	view, err := o.Quizzes.Create(app.QuizDraft{
		Name:        c.Name,
		Description: c.Description,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		Questions:   c.QuestionList(),
	}, c.UID)
	if err != nil {
		return err
	}
	o.saveQuiz(ctx, view.Quiz.ID)

	o.Transport.JoinGroup(conn, core.QuizGroup(view.Quiz.ID))
	o.Transport.BroadcastAll(core.Event{Type: event.QuizCreated, Data: quizCreatedPayload{
		QuizView: view,
		Message:  fmt.Sprintf("Quiz %s created successfully!", view.Quiz.Name),
	}})
	return nil
}

func (o *Orchestrator) joinQuiz(ctx context.Context, conn domain.ConnID, c *event.JoinQuizCommand) error {
	res, err := o.Quizzes.Join(c.QuizID, c.UID)
	if err != nil {
		return err
	}
	o.saveQuiz(ctx, c.QuizID)

	o.Transport.JoinGroup(conn, core.QuizGroup(c.QuizID))
	o.Transport.BroadcastAll(core.Event{Type: event.QuizJoined, Data: quizUsersPayload{
		QuizID: c.QuizID,
		UID:    c.UID,
		Users:  res.Users,
	}})
	return nil
}

func (o *Orchestrator) submitAnswer(ctx context.Context, conn domain.ConnID, c *event.SubmitAnswerCommand) error {
	res, err := o.Quizzes.Submit(c.QuizID, c.QuestionID, c.UID, c.Response)
	if err != nil {
		return err
	}
	o.saveQuiz(ctx, c.QuizID)

	o.send(conn, event.QuizStats, quizStatsPayload{
		QuizID:  c.QuizID,
		Attempt: res.Attempt,
		Correct: res.Record.Correct,
	})
	o.Transport.SendGroup(core.QuizGroup(c.QuizID), core.Event{Type: event.AnswerSubmitted, Data: answerPayload{
		QuizID:     c.QuizID,
		QuestionID: c.QuestionID,
		UID:        c.UID,
		Response:   c.Response,
	}})
	o.Transport.BroadcastAll(core.Event{Type: event.LeaderboardReady, Data: leaderboardPayload{
		QuizID:      c.QuizID,
		Leaderboard: res.Leaderboard,
	}})
	return nil
}

func (o *Orchestrator) endQuiz(ctx context.Context, conn domain.ConnID, c *event.EndQuizCommand) error {
	res, err := o.Quizzes.End(c.QuizID, c.UID)
	if err != nil {
		return err
	}
	o.saveQuiz(ctx, c.QuizID)

	o.Transport.BroadcastAll(core.Event{Type: event.QuizEnded, Data: quizUsersPayload{
		QuizID: c.QuizID,
		UID:    c.UID,
		Users:  res.Users,
	}})
	o.Transport.LeaveGroup(conn, core.QuizGroup(c.QuizID))
	return nil
}

func (o *Orchestrator) getLeaderboard(conn domain.ConnID, c *event.GetLeaderboardCommand) error {
	board, err := o.Quizzes.Leaderboard(c.QuizID)
	if err != nil {
		return err
	}
	o.send(conn, event.LeaderboardReady, leaderboardPayload{QuizID: c.QuizID, Leaderboard: board})
	return nil
}
