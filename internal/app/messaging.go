package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrTransferExists = domain.Validation("File transfer already started!")

// Transfer is the working state of one in-flight upload. Chunk bytes are not
// kept, only their count.
type Transfer struct {
	Meta      domain.FileMeta  `json:"file"`
	RoomID    domain.RoomID    `json:"roomId,omitempty"`
	To        domain.UserID    `json:"to,omitempty"`
	Sender    domain.UserID    `json:"sender"`
	Conn      domain.ConnID    `json:"-"`
	MessageID domain.MessageID `json:"messageId,omitempty"`
	Received  int64            `json:"received"`
	Chunks    int              `json:"chunks"`
	Paused    bool             `json:"paused"`
}

func (t *Transfer) Direct() bool { return t.RoomID == "" }

// Percent is floor(received*100/size), capped at 100.
func (t *Transfer) Percent() int {
	if t.Meta.Size <= 0 {
		return 0
	}
	return int(min(t.Received*100/t.Meta.Size, 100))
}

// FileResult is a transfer snapshot plus the file message it drives, if any.
type FileResult struct {
	Transfer Transfer
	Message  *domain.Message
}

// FileStart describes a transfer being announced.
type FileStart struct {
	FileID   domain.FileID
	RoomID   domain.RoomID
	To       domain.UserID
	Sender   domain.UserID
	Conn     domain.ConnID
	Name     string
	Size     int64
	MimeType string
}

// MessageLog appends chat messages to room logs and drives the file
// transfer state machine. Lock order is MessageLog, then RoomRegistry.
type MessageLog struct {
	mu        sync.Mutex
	transfers map[domain.FileID]*Transfer
	seq       atomic.Int64
	rooms     *RoomRegistry
	users     UserResolver
	now       func() time.Time
}

func NewMessageLog(rooms *RoomRegistry, users UserResolver, now func() time.Time) *MessageLog {
	if now == nil {
		now = time.Now
	}
	l := &MessageLog{
		transfers: make(map[domain.FileID]*Transfer),
		rooms:     rooms,
		users:     users,
		now:       now,
	}
	l.seq.Store(now().UnixMilli())
	return l
}

func (l *MessageLog) nextID() domain.MessageID {
	return domain.MessageID(l.seq.Add(1))
}

// SeedAfter moves the id sequence past id, e.g. after restoring logs whose
// ids were issued by a faster clock.
func (l *MessageLog) SeedAfter(id domain.MessageID) {
	for {
		cur := l.seq.Load()
		if int64(id) <= cur || l.seq.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// Append adds a text message. It either lands in the room log in full or is
// rejected.
func (l *MessageLog) Append(roomID domain.RoomID, sender domain.UserID, body string) (domain.Message, error) {
	if !l.users.Exists(sender) {
		return domain.Message{}, domain.ErrUserNotFound
	}
	msg := domain.Message{
		Type:      domain.MessageText,
		Sender:    sender,
		Message:   body,
		Timestamp: l.now(),
	}
	return l.rooms.AppendMessage(roomID, msg, l.nextID)
}

// StartFile opens a transfer. Room transfers also append a placeholder
// file message with status uploading.
func (l *MessageLog) StartFile(in FileStart) (FileResult, error) {
	if in.Size <= 0 {
		return FileResult{}, domain.ErrMissingFields
	}
	if in.Size > domain.MaxFileSize {
		return FileResult{}, domain.ErrFileTooLarge
	}
	if !l.users.Exists(in.Sender) {
		return FileResult{}, domain.ErrUserNotFound
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.transfers[in.FileID]; ok {
		return FileResult{}, ErrTransferExists
	}
	t := &Transfer{
		Meta: domain.FileMeta{
			FileID:   in.FileID,
			Name:     in.Name,
			Size:     in.Size,
			MimeType: in.MimeType,
		},
		RoomID: in.RoomID,
		To:     in.To,
		Sender: in.Sender,
		Conn:   in.Conn,
	}
	if in.RoomID != "" {
		t.To = ""
	} else if !l.users.Exists(in.To) {
		return FileResult{}, domain.ErrUserNotFound
	}

	res := FileResult{}
	if !t.Direct() {
		meta := t.Meta
		msg, err := l.rooms.AppendMessage(t.RoomID, domain.Message{
			Type:      domain.MessageFile,
			Sender:    t.Sender,
			File:      &meta,
			Status:    domain.FileUploading,
			Timestamp: l.now(),
		}, l.nextID)
		if err != nil {
			return FileResult{}, err
		}
		t.MessageID = msg.ID
		res.Message = &msg
	}
	l.transfers[t.Meta.FileID] = t
	res.Transfer = *t

	log.Info().
		Str("module", "app.messages").
		Str("file_id", string(in.FileID)).
		Str("room_id", string(in.RoomID)).
		Int64("size", in.Size).
		Msg("transfer started")
	return res, nil
}

// Chunk accounts n more received bytes, never past the announced size.
// Unknown transfers report false.
func (l *MessageLog) Chunk(id domain.FileID, n int64) (Transfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transfers[id]
	if !ok {
		return Transfer{}, false
	}
	if n > 0 {
		t.Received += min(n, t.Meta.Size-t.Received)
	}
	t.Chunks++
	return *t, true
}

func (l *MessageLog) Pause(id domain.FileID) (Transfer, bool) {
	return l.setPaused(id, true)
}

func (l *MessageLog) Resume(id domain.FileID) (Transfer, bool) {
	return l.setPaused(id, false)
}

func (l *MessageLog) setPaused(id domain.FileID, paused bool) (Transfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transfers[id]
	if !ok {
		return Transfer{}, false
	}
	t.Paused = paused
	return *t, true
}

// Complete finishes the transfer, attaching url to its message.
func (l *MessageLog) Complete(id domain.FileID, url string) (FileResult, bool) {
	return l.finish(id, func(m *domain.Message) {
		m.Status = domain.FileCompleted
		if m.File != nil {
			m.File.URL = url
		}
	})
}

func (l *MessageLog) Cancel(id domain.FileID) (FileResult, bool) {
	return l.finish(id, func(m *domain.Message) { m.Status = domain.FileCanceled })
}

func (l *MessageLog) finish(id domain.FileID, mark func(*domain.Message)) (FileResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transfers[id]
	if !ok {
		return FileResult{}, false
	}
	delete(l.transfers, id)
	return l.markLocked(t, mark), true
}

func (l *MessageLog) markLocked(t *Transfer, mark func(*domain.Message)) FileResult {
	res := FileResult{Transfer: *t}
	if t.Direct() {
		return res
	}
	msg, err := l.rooms.UpdateMessage(t.RoomID, t.MessageID, mark)
	if err != nil {
		// room closed under the transfer
		log.Debug().Err(err).Str("module", "app.messages").Str("file_id", string(t.Meta.FileID)).Msg("transfer message gone")
		return res
	}
	res.Message = &msg
	return res
}

// CancelByConn cancels every transfer announced from conn.
func (l *MessageLog) CancelByConn(conn domain.ConnID) []FileResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []FileResult
	for id, t := range l.transfers {
		if t.Conn != conn {
			continue
		}
		delete(l.transfers, id)
		out = append(out, l.markLocked(t, func(m *domain.Message) { m.Status = domain.FileCanceled }))
	}
	return out
}

// DiscardRoom drops the transfers of a closed room without touching any log.
func (l *MessageLog) DiscardRoom(roomID domain.RoomID) []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Transfer
	for id, t := range l.transfers {
		if t.RoomID == roomID {
			delete(l.transfers, id)
			out = append(out, *t)
		}
	}
	return out
}

func (l *MessageLog) Active(id domain.FileID) (Transfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transfers[id]
	if !ok {
		return Transfer{}, false
	}
	return *t, true
}

func (l *MessageLog) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transfers)
}
