package orch

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/rs/zerolog/log"
)

const internalErrorMessage = "Something went wrong!"

// Orchestrator is the session coordinator: it routes every decoded command
// to one component, persists the outcome and fans out the resulting events.
type Orchestrator struct {
	Directory *app.Directory
	Rooms     *app.RoomRegistry
	Messages  *app.MessageLog
	Quizzes   *app.QuizEngine
	Relay     *app.SignalRelay
	Transport core.Transport
	Gateway   core.Gateway

	files fileWrites
}

// New wires the components around one transport and one store. now may be
// nil.
func New(transport core.Transport, gateway core.Gateway, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	dir := app.NewDirectory(now)
	rooms := app.NewRoomRegistry(dir, now)
	return &Orchestrator{
		Directory: dir,
		Rooms:     rooms,
		Messages:  app.NewMessageLog(rooms, dir, now),
		Quizzes:   app.NewQuizEngine(dir, now),
		Relay:     app.NewSignalRelay(dir, transport),
		Transport: transport,
		Gateway:   gateway,
		files:     fileWrites{seen: make(map[domain.MessageID]struct{})},
	}
}

// Restore reloads durable state. Everybody starts offline.
func (o *Orchestrator) Restore(ctx context.Context) error {
	users, err := o.Gateway.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("restore users: %w", err)
	}
	o.Directory.Restore(users)

	rooms, err := o.Gateway.GetAllRooms(ctx)
	if err != nil {
		return fmt.Errorf("restore rooms: %w", err)
	}
	o.Rooms.Restore(rooms)
	o.Messages.SeedAfter(o.Rooms.MaxMessageID())

	quizzes, err := o.Gateway.GetAllQuizzes(ctx)
	if err != nil {
		return fmt.Errorf("restore quizzes: %w", err)
	}
	o.Quizzes.Restore(quizzes)
	return nil
}

func (o *Orchestrator) Connect(conn domain.ConnID) {
	o.send(conn, event.Connected, connectedPayload{SocketID: conn})
}

// Disconnect releases everything bound to conn: its transfers are canceled
// and its user, if conn is still the user's current connection, goes
// offline exactly once.
func (o *Orchestrator) Disconnect(ctx context.Context, conn domain.ConnID) {
	for _, res := range o.Messages.CancelByConn(conn) {
		o.emitFileDone(ctx, event.FileCanceled, res)
	}
	user, ok := o.Directory.MarkOffline(conn)
	if !ok {
		return
	}
	o.persist("update user status", o.Gateway.UpdateUserStatus(ctx, user.UID, user.Status, user.Timestamp))
	o.Transport.BroadcastExcept(conn, core.Event{Type: event.UserUpdated, Data: user})
}

// Dispatch runs one command from conn. A failing or panicking handler only
// ever answers conn.
func (o *Orchestrator) Dispatch(ctx context.Context, conn domain.ConnID, cmd event.Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "orch").
				Str("conn", string(conn)).
				Str("event", cmd.Name()).
				Interface("panic", r).
				Msg("handler panic")
			o.send(conn, event.Error, errorPayload{Message: internalErrorMessage})
		}
	}()

	if err := o.dispatch(ctx, conn, cmd); err != nil {
		o.reject(conn, cmd.Name(), err)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, conn domain.ConnID, cmd event.Command) error {
	switch c := cmd.(type) {
	case *event.RegisterCommand:
		return o.register(ctx, conn, c)
	case *event.WhoAmICommand:
		return o.whoAmI(conn)
	case *event.PingCommand:
		o.send(conn, event.Pong, nil)
		return nil

	case *event.CreateRoomCommand:
		return o.createRoom(ctx, conn, c)
	case *event.JoinRoomCommand:
		return o.joinRoom(ctx, conn, c)
	case *event.LeaveRoomCommand:
		return o.leaveRoom(ctx, conn, c)
	case *event.CloseRoomCommand:
		return o.closeRoom(ctx, c)
	case *event.SendMessageCommand:
		return o.sendMessage(ctx, conn, c)
	case *event.GetMessagesCommand:
		return o.getMessages(conn, c)

	case *event.FileStartCommand:
		return o.fileStart(ctx, conn, c)
	case *event.FileChunkCommand:
		o.fileChunk(c)
	case *event.FilePauseCommand:
		o.filePause(event.FilePaused, c.FileID, true)
	case *event.FileResumeCommand:
		o.filePause(event.FileResumed, c.FileID, false)
	case *event.FileCompleteCommand:
		if res, ok := o.Messages.Complete(c.FileID, c.URL); ok {
			o.emitFileDone(ctx, event.FileCompleted, res)
		}
	case *event.FileCancelCommand:
		if res, ok := o.Messages.Cancel(c.FileID); ok {
			o.emitFileDone(ctx, event.FileCanceled, res)
		}

	case *event.CreateQuizCommand:
		return o.createQuiz(ctx, conn, c)
	case *event.JoinQuizCommand:
		return o.joinQuiz(ctx, conn, c)
	case *event.SubmitAnswerCommand:
		return o.submitAnswer(ctx, conn, c)
	case *event.EndQuizCommand:
		return o.endQuiz(ctx, conn, c)
	case *event.GetLeaderboardCommand:
		return o.getLeaderboard(conn, c)

	case *event.InitCallCommand:
		o.Relay.InitiateCall(conn, target(c.CallTarget), c.Offer)
	case *event.AnswerCallCommand:
		o.Relay.AnswerCall(conn, target(c.CallTarget), c.Answer)
	case *event.ICECandidateCommand:
		o.Relay.RelayICECandidate(conn, target(c.CallTarget), c.Candidate)
	case *event.RejectCallCommand:
		o.Relay.RejectCall(conn, target(c.CallTarget))
	case *event.EndCallCommand:
		o.Relay.EndCall(conn, target(c.CallTarget))

	default:
		log.Warn().Str("module", "orch").Str("event", cmd.Name()).Msg("no handler")
	}
	return nil
}

// reject answers conn with an error event. Only client-facing errors keep
// their message.
func (o *Orchestrator) reject(conn domain.ConnID, name string, err error) {
	msg := err.Error()
	if !domain.Public(err) {
		log.Error().Err(err).Str("module", "orch").Str("event", name).Msg("handler failed")
		msg = internalErrorMessage
	} else {
		log.Debug().Err(err).Str("module", "orch").Str("event", name).Str("conn", string(conn)).Msg("rejected")
	}
	o.send(conn, event.Error, errorPayload{Message: msg})
}

func (o *Orchestrator) send(conn domain.ConnID, name string, data any) {
	o.Transport.Send(conn, core.Event{Type: name, Data: data})
}

// persist logs a failed durable write. In-memory state has already moved on.
func (o *Orchestrator) persist(op string, err error) {
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("op", op).Msg("persist failed")
	}
}
