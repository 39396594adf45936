package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type userModel struct {
	UID         string    `gorm:"primaryKey;size:64"`
	DisplayName string    `gorm:"size:64;not null"`
	PhotoURL    string    `gorm:"type:text"`
	Status      string    `gorm:"size:16;not null"`
	Timestamp   time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID           string         `gorm:"primaryKey;size:64"`
	PhotoURL     string         `gorm:"type:text"`
	Name         string         `gorm:"size:255;not null"`
	Description  string         `gorm:"type:text"`
	Host         string         `gorm:"size:64;not null;index"`
	CreatedAt    time.Time      `gorm:"not null"`
	LastModified time.Time      `gorm:"not null"`
	Members      datatypes.JSON `gorm:"type:jsonb"`
}

func (roomModel) TableName() string { return "rooms" }

type messageModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false"`
	RoomID    string         `gorm:"size:64;not null;index"`
	Type      string         `gorm:"size:16;not null"`
	Sender    string         `gorm:"size:64;not null"`
	Message   string         `gorm:"type:text"`
	File      datatypes.JSON `gorm:"type:jsonb"`
	Status    string         `gorm:"size:16"`
	Timestamp time.Time      `gorm:"not null"`
}

func (messageModel) TableName() string { return "messages" }

type quizModel struct {
	ID           string         `gorm:"primaryKey;size:64"`
	Name         string         `gorm:"size:255;not null"`
	Description  string         `gorm:"type:text"`
	Host         string         `gorm:"size:64;not null;index"`
	CreatedAt    time.Time      `gorm:"not null"`
	LastModified time.Time      `gorm:"not null"`
	StartDate    time.Time      `gorm:"not null"`
	EndDate      time.Time      `gorm:"not null"`
	Questions    datatypes.JSON `gorm:"type:jsonb"`
}

func (quizModel) TableName() string { return "quizzes" }

type attemptModel struct {
	QuizID        string         `gorm:"primaryKey;size:64"`
	UID           string         `gorm:"primaryKey;size:64"`
	Start         time.Time      `gorm:"not null"`
	End           *time.Time     `gorm:"column:ended_at"`
	Attempt       int            `gorm:"not null"`
	LastContinued time.Time      `gorm:"not null"`
	LastUpdated   time.Time      `gorm:"not null"`
	Correct       int            `gorm:"not null"`
	Incorrect     int            `gorm:"not null"`
	Answered      int            `gorm:"not null"`
	Answers       datatypes.JSON `gorm:"type:jsonb"`
}

func (attemptModel) TableName() string { return "quiz_attempts" }

// PostgresStore is the relational core.Gateway built on gorm.
type PostgresStore struct {
	db *gorm.DB
}

var _ core.Gateway = (*PostgresStore)(nil)

func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, wrap("connect postgres", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "storage.postgres").Msg("database connected")
	return s, nil
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate() error {
	return wrap("migrate", s.db.AutoMigrate(
		&userModel{},
		&roomModel{},
		&messageModel{},
		&quizModel{},
		&attemptModel{},
	))
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func upsert(tx *gorm.DB, v any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(v).Error
}

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *PostgresStore) SaveUser(ctx context.Context, user domain.User) error {
	return wrap("save user", upsert(s.db.WithContext(ctx), &userModel{
		UID:         string(user.UID),
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Status:      string(user.Status),
		Timestamp:   user.Timestamp,
	}))
}

func (s *PostgresStore) UpdateUserStatus(ctx context.Context, uid domain.UserID, status domain.Status, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&userModel{}).
		Where("uid = ?", string(uid)).
		Updates(map[string]any{"status": string(status), "timestamp": at})
	if res.Error != nil {
		return wrap("update user status", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update user status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *PostgresStore) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userModel
	if err := s.db.WithContext(ctx).Order("uid").Find(&rows).Error; err != nil {
		return nil, wrap("get users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.User{
			UID:         domain.UserID(r.UID),
			DisplayName: r.DisplayName,
			PhotoURL:    r.PhotoURL,
			Status:      domain.Status(r.Status),
			Timestamp:   r.Timestamp,
		})
	}
	return out, nil
}

func roomToModel(room domain.Room) (roomModel, error) {
	members, err := toJSON(room.Members)
	if err != nil {
		return roomModel{}, err
	}
	return roomModel{
		ID:           string(room.ID),
		PhotoURL:     room.PhotoURL,
		Name:         room.Name,
		Description:  room.Description,
		Host:         string(room.Host),
		CreatedAt:    room.CreatedAt,
		LastModified: room.LastModified,
		Members:      members,
	}, nil
}

func roomFromModel(m roomModel) (domain.Room, error) {
	room := domain.Room{
		ID:           domain.RoomID(m.ID),
		PhotoURL:     m.PhotoURL,
		Name:         m.Name,
		Description:  m.Description,
		Host:         domain.UserID(m.Host),
		CreatedAt:    m.CreatedAt,
		LastModified: m.LastModified,
	}
	if err := fromJSON(m.Members, &room.Members); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func messageToModel(msg domain.Message) (messageModel, error) {
	m := messageModel{
		ID:        int64(msg.ID),
		RoomID:    string(msg.RoomID),
		Type:      string(msg.Type),
		Sender:    string(msg.Sender),
		Message:   msg.Message,
		Status:    string(msg.Status),
		Timestamp: msg.Timestamp,
	}
	if msg.File != nil {
		f, err := toJSON(msg.File)
		if err != nil {
			return messageModel{}, err
		}
		m.File = f
	}
	return m, nil
}

func messageFromModel(m messageModel) (domain.Message, error) {
	msg := domain.Message{
		ID:        domain.MessageID(m.ID),
		RoomID:    domain.RoomID(m.RoomID),
		Type:      domain.MessageType(m.Type),
		Sender:    domain.UserID(m.Sender),
		Message:   m.Message,
		Status:    domain.FileStatus(m.Status),
		Timestamp: m.Timestamp,
	}
	if len(m.File) > 0 {
		msg.File = &domain.FileMeta{}
		if err := fromJSON(m.File, msg.File); err != nil {
			return domain.Message{}, err
		}
	}
	return msg, nil
}

func (s *PostgresStore) SaveRoom(ctx context.Context, room domain.Room) error {
	m, err := roomToModel(room)
	if err != nil {
		return wrap("save room", err)
	}
	return wrap("save room", upsert(s.db.WithContext(ctx), &m))
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	return wrap("delete room", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", string(id)).Delete(&messageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", string(id)).Delete(&roomModel{}).Error
	}))
}

func (s *PostgresStore) GetAllRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []roomModel
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rooms).Error; err != nil {
		return nil, wrap("get rooms", err)
	}
	var msgs []messageModel
	if err := s.db.WithContext(ctx).Order("id").Find(&msgs).Error; err != nil {
		return nil, wrap("get rooms", err)
	}
	byRoom := make(map[string][]domain.Message)
	for _, m := range msgs {
		msg, err := messageFromModel(m)
		if err != nil {
			return nil, wrap("get rooms", err)
		}
		byRoom[m.RoomID] = append(byRoom[m.RoomID], msg)
	}
	out := make([]domain.Room, 0, len(rooms))
	for _, m := range rooms {
		room, err := roomFromModel(m)
		if err != nil {
			return nil, wrap("get rooms", err)
		}
		room.Messages = byRoom[m.ID]
		out = append(out, room)
	}
	return out, nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg domain.Message) error {
	m, err := messageToModel(msg)
	if err != nil {
		return wrap("save message", err)
	}
	return wrap("save message", upsert(s.db.WithContext(ctx), &m))
}

func quizToModels(rec core.QuizRecord) (quizModel, []attemptModel, error) {
	q := rec.Quiz
	questions, err := toJSON(q.Questions)
	if err != nil {
		return quizModel{}, nil, err
	}
	qm := quizModel{
		ID:           string(q.ID),
		Name:         q.Name,
		Description:  q.Description,
		Host:         string(q.Host),
		CreatedAt:    q.CreatedAt,
		LastModified: q.LastModified,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
		Questions:    questions,
	}
	attempts := make([]attemptModel, 0, len(rec.Attempts))
	for _, a := range rec.Attempts {
		answers, err := toJSON(a.Answers)
		if err != nil {
			return quizModel{}, nil, err
		}
		attempts = append(attempts, attemptModel{
			QuizID:        string(q.ID),
			UID:           string(a.UID),
			Start:         a.Start,
			End:           a.End,
			Attempt:       a.Attempt,
			LastContinued: a.LastContinued,
			LastUpdated:   a.LastUpdated,
			Correct:       a.Correct,
			Incorrect:     a.Incorrect,
			Answered:      a.Answered,
			Answers:       answers,
		})
	}
	return qm, attempts, nil
}

func quizFromModels(qm quizModel, attempts []attemptModel) (core.QuizRecord, error) {
	rec := core.QuizRecord{Quiz: domain.Quiz{
		ID:           domain.QuizID(qm.ID),
		Name:         qm.Name,
		Description:  qm.Description,
		Host:         domain.UserID(qm.Host),
		CreatedAt:    qm.CreatedAt,
		LastModified: qm.LastModified,
		StartDate:    qm.StartDate,
		EndDate:      qm.EndDate,
	}}
	if err := fromJSON(qm.Questions, &rec.Quiz.Questions); err != nil {
		return core.QuizRecord{}, err
	}
	for _, am := range attempts {
		a := domain.Attempt{
			UID:           domain.UserID(am.UID),
			Start:         am.Start,
			End:           am.End,
			Attempt:       am.Attempt,
			LastContinued: am.LastContinued,
			LastUpdated:   am.LastUpdated,
			Correct:       am.Correct,
			Incorrect:     am.Incorrect,
			Answered:      am.Answered,
			Answers:       make(map[domain.QuestionID]domain.AnswerRecord),
		}
		if err := fromJSON(am.Answers, &a.Answers); err != nil {
			return core.QuizRecord{}, err
		}
		rec.Attempts = append(rec.Attempts, a)
	}
	return rec, nil
}

func (s *PostgresStore) SaveQuizAndAnswers(ctx context.Context, rec core.QuizRecord) error {
	qm, attempts, err := quizToModels(rec)
	if err != nil {
		return wrap("save quiz", err)
	}
	return wrap("save quiz", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, &qm); err != nil {
			return err
		}
		if len(attempts) == 0 {
			return nil
		}
		return upsert(tx, &attempts)
	}))
}

func (s *PostgresStore) GetAllQuizzes(ctx context.Context) ([]core.QuizRecord, error) {
	var quizzes []quizModel
	if err := s.db.WithContext(ctx).Order("created_at").Find(&quizzes).Error; err != nil {
		return nil, wrap("get quizzes", err)
	}
	var attempts []attemptModel
	if err := s.db.WithContext(ctx).Order("quiz_id, uid").Find(&attempts).Error; err != nil {
		return nil, wrap("get quizzes", err)
	}
	byQuiz := make(map[string][]attemptModel)
	for _, a := range attempts {
		byQuiz[a.QuizID] = append(byQuiz[a.QuizID], a)
	}
	out := make([]core.QuizRecord, 0, len(quizzes))
	for _, qm := range quizzes {
		rec, err := quizFromModels(qm, byQuiz[qm.ID])
		if err != nil {
			return nil, fmt.Errorf("%w: decode quiz %s: %w", domain.ErrPersistence, qm.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
