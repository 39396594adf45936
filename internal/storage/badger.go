package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	userPrefix = "user:"
	roomPrefix = "room:"
	msgPrefix  = "msg:"
	quizPrefix = "quiz:"
)

func userKey(uid domain.UserID) []byte { return []byte(userPrefix + string(uid)) }
func roomKey(id domain.RoomID) []byte  { return []byte(roomPrefix + string(id)) }
func quizKey(id domain.QuizID) []byte  { return []byte(quizPrefix + string(id)) }

func roomMsgPrefix(id domain.RoomID) []byte { return []byte(msgPrefix + string(id) + ":") }

// msgKey zero-pads the id so a prefix scan yields the room log in id order.
func msgKey(room domain.RoomID, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d", msgPrefix, room, id))
}

// roomRow is a room without its log; messages live under their own keys.
type roomRow struct {
	ID           domain.RoomID                   `json:"id"`
	PhotoURL     string                          `json:"photoURL"`
	Name         string                          `json:"name"`
	Description  string                          `json:"description"`
	Host         domain.UserID                   `json:"host"`
	CreatedAt    time.Time                       `json:"createdDate"`
	LastModified time.Time                       `json:"lastModified"`
	Members      map[domain.UserID]domain.Member `json:"members"`
}

type quizRow struct {
	Quiz     domain.Quiz      `json:"quiz"`
	Attempts []domain.Attempt `json:"attempts"`
}

// BadgerStore is the embedded core.Gateway. Values are JSON documents.
type BadgerStore struct {
	db *badger.DB
}

var _ core.Gateway = (*BadgerStore)(nil)

// OpenBadger opens (or creates) the store at path. An empty path keeps
// everything in memory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %w", domain.ErrPersistence, err)
	}
	log.Info().Str("module", "storage.badger").Str("path", path).Msg("opened")
	return &BadgerStore{db: db}, nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

func scan[T any](txn *badger.Txn, prefix []byte, fn func(T)) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
	defer it.Close()
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return err
		}
		fn(v)
	}
	return nil
}

func (s *BadgerStore) SaveUser(ctx context.Context, user domain.User) error {
	user.ConnID = ""
	return wrap("save user", s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, userKey(user.UID), user)
	}))
}

func (s *BadgerStore) UpdateUserStatus(ctx context.Context, uid domain.UserID, status domain.Status, at time.Time) error {
	return wrap("update user status", s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(uid))
		if err != nil {
			return err
		}
		var u domain.User
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &u) }); err != nil {
			return err
		}
		u.Status = status
		u.Timestamp = at
		return setJSON(txn, userKey(uid), u)
	}))
}

func (s *BadgerStore) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(userPrefix), func(u domain.User) { out = append(out, u) })
	})
	return out, wrap("get users", err)
}

func (s *BadgerStore) SaveRoom(ctx context.Context, room domain.Room) error {
	row := roomRow{
		ID:           room.ID,
		PhotoURL:     room.PhotoURL,
		Name:         room.Name,
		Description:  room.Description,
		Host:         room.Host,
		CreatedAt:    room.CreatedAt,
		LastModified: room.LastModified,
		Members:      room.Members,
	}
	return wrap("save room", s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, roomKey(room.ID), row)
	}))
}

// DeleteRoom removes the room and its whole log. Deleting a missing room
// is not an error.
func (s *BadgerStore) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := roomMsgPrefix(id)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return wrap("delete room", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return wrap("delete room", err)
		}
	}
	if err := wb.Delete(roomKey(id)); err != nil {
		return wrap("delete room", err)
	}
	return wrap("delete room", wb.Flush())
}

func (s *BadgerStore) GetAllRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	err := s.db.View(func(txn *badger.Txn) error {
		var rows []roomRow
		if err := scan(txn, []byte(roomPrefix), func(r roomRow) { rows = append(rows, r) }); err != nil {
			return err
		}
		for _, r := range rows {
			room := domain.Room{
				ID:           r.ID,
				PhotoURL:     r.PhotoURL,
				Name:         r.Name,
				Description:  r.Description,
				Host:         r.Host,
				CreatedAt:    r.CreatedAt,
				LastModified: r.LastModified,
				Members:      r.Members,
			}
			if err := scan(txn, roomMsgPrefix(r.ID), func(m domain.Message) {
				room.Messages = append(room.Messages, m)
			}); err != nil {
				return err
			}
			out = append(out, room)
		}
		return nil
	})
	return out, wrap("get rooms", err)
}

// SaveMessage upserts by (room, id), so a file message's status updates
// overwrite its placeholder.
func (s *BadgerStore) SaveMessage(ctx context.Context, msg domain.Message) error {
	if msg.RoomID == "" {
		return wrap("save message", errors.New("message without room"))
	}
	return wrap("save message", s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, msgKey(msg.RoomID, msg.ID), msg)
	}))
}

func (s *BadgerStore) SaveQuizAndAnswers(ctx context.Context, rec core.QuizRecord) error {
	return wrap("save quiz", s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, quizKey(rec.Quiz.ID), quizRow{Quiz: rec.Quiz, Attempts: rec.Attempts})
	}))
}

func (s *BadgerStore) GetAllQuizzes(ctx context.Context) ([]core.QuizRecord, error) {
	var out []core.QuizRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(quizPrefix), func(r quizRow) {
			out = append(out, core.QuizRecord{Quiz: r.Quiz, Attempts: r.Attempts})
		})
	})
	return out, wrap("get quizzes", err)
}
