package orch

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
)

// fileWrites orders the two durable writes of a room file message, the
// uploading placeholder and its final status. Either may reach the gateway
// first; the final status is never overwritten by the placeholder.
type fileWrites struct {
	mu   sync.Mutex
	seen map[domain.MessageID]struct{}
}

func (w *fileWrites) save(ctx context.Context, gw core.Gateway, msg domain.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[msg.ID]; ok {
		delete(w.seen, msg.ID)
		if msg.Status == domain.FileUploading {
			return nil
		}
	} else {
		w.seen[msg.ID] = struct{}{}
	}
	return gw.SaveMessage(ctx, msg)
}

// forget drops the bookkeeping of transfers that will never finish.
func (w *fileWrites) forget(dropped []app.Transfer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range dropped {
		delete(w.seen, t.MessageID)
	}
}

func (o *Orchestrator) fileStart(ctx context.Context, conn domain.ConnID, c *event.FileStartCommand) error {
	res, err := o.Messages.StartFile(app.FileStart{
		FileID:   c.FileID,
		RoomID:   c.RoomID,
		To:       c.To,
		Sender:   c.UID,
		Conn:     conn,
		Name:     c.FileName,
		Size:     c.FileSize,
		MimeType: c.MimeType,
	})
	if err != nil {
		return err
	}
	if res.Message != nil {
		o.persist("save message", o.files.save(ctx, o.Gateway, *res.Message))
	}
	o.emitFile(event.FileStarted, res.Transfer, res.Message)
	return nil
}

// fileChunk ignores unknown transfers: the upload may already be over.
func (o *Orchestrator) fileChunk(c *event.FileChunkCommand) {
	t, ok := o.Messages.Chunk(c.FileID, c.Bytes())
	if !ok {
		return
	}
	o.emitFile(event.FileProgress, t, nil)
}

func (o *Orchestrator) filePause(name string, id domain.FileID, paused bool) {
	var (
		t  app.Transfer
		ok bool
	)
	if paused {
		t, ok = o.Messages.Pause(id)
	} else {
		t, ok = o.Messages.Resume(id)
	}
	if ok {
		o.emitFile(name, t, nil)
	}
}

func (o *Orchestrator) emitFileDone(ctx context.Context, name string, res app.FileResult) {
	if res.Message != nil {
		o.persist("save message", o.files.save(ctx, o.Gateway, *res.Message))
	}
	o.emitFile(name, res.Transfer, res.Message)
}

// emitFile delivers a transfer event to the room, or for direct transfers to
// the sender and the recipient.
func (o *Orchestrator) emitFile(name string, t app.Transfer, msg *domain.Message) {
	ev := core.Event{Type: name, Data: filePayload{
		FileID:   t.Meta.FileID,
		RoomID:   t.RoomID,
		To:       t.To,
		Sender:   t.Sender,
		File:     t.Meta,
		Progress: t.Percent(),
		Received: t.Received,
		Message:  msg,
	}}
	if !t.Direct() {
		o.Transport.SendGroup(core.RoomGroup(t.RoomID), ev)
		return
	}
	o.Transport.Send(t.Conn, ev)
	if to, ok := o.Directory.ConnOf(t.To); ok && to != t.Conn {
		o.Transport.Send(to, ev)
	}
}
