package app

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// QuizDraft is a quiz as submitted by its host.
type QuizDraft struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Questions   []domain.Question
}

// QuizView is the quizzes-list shape of a quiz: definition, attempts,
// per-question responses and questions.
type QuizView struct {
	Quiz      domain.Quiz                                    `json:"quiz"`
	Users     map[domain.UserID]domain.Attempt               `json:"users"`
	Answers   map[domain.QuestionID]map[domain.UserID]string `json:"answers"`
	Questions []domain.Question                              `json:"questions"`
}

// SubmitResult carries everything a submission changes.
type SubmitResult struct {
	Attempt     domain.Attempt
	Record      domain.AnswerRecord
	Leaderboard []domain.LeaderboardEntry
}

// AttemptResult is an attempt after join or end, plus all attempts of the quiz.
type AttemptResult struct {
	Attempt domain.Attempt
	Users   map[domain.UserID]domain.Attempt
}

type quizState struct {
	quiz     domain.Quiz
	index    map[domain.QuestionID]int
	attempts map[domain.UserID]*domain.Attempt
}

func newQuizState(q domain.Quiz) *quizState {
	st := &quizState{
		quiz:     q,
		index:    make(map[domain.QuestionID]int, len(q.Questions)),
		attempts: make(map[domain.UserID]*domain.Attempt),
	}
	for i, question := range q.Questions {
		st.index[question.ID] = i
	}
	return st
}

func (st *quizState) users() map[domain.UserID]domain.Attempt {
	out := make(map[domain.UserID]domain.Attempt, len(st.attempts))
	for uid, a := range st.attempts {
		out[uid] = a.Clone()
	}
	return out
}

func (st *quizState) view() QuizView {
	answers := make(map[domain.QuestionID]map[domain.UserID]string)
	for uid, a := range st.attempts {
		for qid, rec := range a.Answers {
			if answers[qid] == nil {
				answers[qid] = make(map[domain.UserID]string)
			}
			answers[qid][uid] = rec.Response
		}
	}
	q := st.quiz.Clone()
	return QuizView{
		Quiz:      q,
		Users:     st.users(),
		Answers:   answers,
		Questions: q.Questions,
	}
}

// leaderboard ranks by correct answers, then by who got there first.
func (st *quizState) leaderboard() []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(st.attempts))
	for _, a := range st.attempts {
		out = append(out, domain.LeaderboardEntry{
			UID:         a.UID,
			Correct:     a.Correct,
			Incorrect:   a.Incorrect,
			Answered:    a.Answered,
			LastUpdated: a.LastUpdated,
			Finished:    !a.Active(),
		})
	}
	slices.SortFunc(out, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(b.Correct, a.Correct); c != 0 {
			return c
		}
		if c := a.LastUpdated.Compare(b.LastUpdated); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})
	return out
}

func (st *quizState) record() core.QuizRecord {
	attempts := make([]domain.Attempt, 0, len(st.attempts))
	for _, a := range st.attempts {
		attempts = append(attempts, a.Clone())
	}
	slices.SortFunc(attempts, func(a, b domain.Attempt) int { return cmp.Compare(a.UID, b.UID) })
	return core.QuizRecord{Quiz: st.quiz.Clone(), Attempts: attempts}
}

type QuizEngine struct {
	mu      sync.RWMutex
	quizzes map[domain.QuizID]*quizState
	users   UserResolver
	now     func() time.Time
}

func NewQuizEngine(users UserResolver, now func() time.Time) *QuizEngine {
	if now == nil {
		now = time.Now
	}
	return &QuizEngine{
		quizzes: make(map[domain.QuizID]*quizState),
		users:   users,
		now:     now,
	}
}

func validateDraft(d QuizDraft) error {
	if d.Name == "" || d.Description == "" || d.StartDate.IsZero() || d.EndDate.IsZero() || len(d.Questions) == 0 {
		return domain.ErrMissingFields
	}
	if !d.EndDate.After(d.StartDate) {
		return domain.ErrInvalidWindow
	}
	seen := make(map[domain.QuestionID]struct{}, len(d.Questions))
	for _, q := range d.Questions {
		if _, dup := seen[q.ID]; dup || q.ID == "" {
			return domain.ErrInvalidQuestion
		}
		seen[q.ID] = struct{}{}
		if !slices.Contains(q.Options, q.Answer) {
			return domain.ErrInvalidQuestion
		}
	}
	return nil
}

// Create registers a quiz hosted by host. The question set is fixed from
// here on.
func (e *QuizEngine) Create(d QuizDraft, host domain.UserID) (QuizView, error) {
	if err := validateDraft(d); err != nil {
		return QuizView{}, err
	}
	if !e.users.Exists(host) {
		return QuizView{}, domain.ErrUserNotFound
	}
	now := e.now()
	q := domain.Quiz{
		ID:           domain.QuizID(uuid.NewString()),
		Name:         d.Name,
		Description:  d.Description,
		Host:         host,
		CreatedAt:    now,
		LastModified: now,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		Questions:    d.Questions,
	}
	q = q.Clone()
	st := newQuizState(q)

	e.mu.Lock()
	e.quizzes[q.ID] = st
	v := st.view()
	e.mu.Unlock()

	log.Info().Str("module", "app.quiz").Str("quiz_id", string(q.ID)).Int("questions", len(q.Questions)).Msg("quiz created")
	return v, nil
}

// Join starts or resumes uid's attempt. A join after the attempt ended
// reopens it.
func (e *QuizEngine) Join(id domain.QuizID, uid domain.UserID) (AttemptResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.quizzes[id]
	if !ok {
		return AttemptResult{}, domain.ErrQuizNotFound
	}
	if !e.users.Exists(uid) {
		return AttemptResult{}, domain.ErrUserNotFound
	}
	now := e.now()
	a, ok := st.attempts[uid]
	if !ok {
		a = &domain.Attempt{
			UID:           uid,
			Start:         now,
			Attempt:       1,
			LastContinued: now,
			LastUpdated:   now,
			Answers:       make(map[domain.QuestionID]domain.AnswerRecord),
		}
		st.attempts[uid] = a
	} else {
		a.Attempt++
		a.LastContinued = now
		a.End = nil
	}
	log.Info().Str("module", "app.quiz").Str("quiz_id", string(id)).Str("uid", string(uid)).Int("attempt", a.Attempt).Msg("joined")
	return AttemptResult{Attempt: a.Clone(), Users: st.users()}, nil
}

// Submit records response as uid's answer to question qid. A previous answer
// to the same question is retracted from the counters first, so the counters
// always reflect the latest answer per question.
func (e *QuizEngine) Submit(id domain.QuizID, qid domain.QuestionID, uid domain.UserID, response string) (SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.quizzes[id]
	if !ok {
		return SubmitResult{}, domain.ErrQuizNotFound
	}
	a, ok := st.attempts[uid]
	if !ok || !a.Active() {
		return SubmitResult{}, domain.ErrAttemptNotActive
	}
	i, ok := st.index[qid]
	if !ok {
		return SubmitResult{}, domain.ErrQuestionNotFound
	}

	if prev, ok := a.Answers[qid]; ok {
		a.Answered--
		if prev.Correct {
			a.Correct--
		} else {
			a.Incorrect--
		}
	}
	now := e.now()
	rec := domain.AnswerRecord{
		Response: response,
		Correct:  st.quiz.Questions[i].Answer == response,
		At:       now,
	}
	a.Answers[qid] = rec
	a.Answered++
	if rec.Correct {
		a.Correct++
	} else {
		a.Incorrect++
	}
	a.LastUpdated = now

	return SubmitResult{Attempt: a.Clone(), Record: rec, Leaderboard: st.leaderboard()}, nil
}

// End stamps the end of uid's attempt.
func (e *QuizEngine) End(id domain.QuizID, uid domain.UserID) (AttemptResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.quizzes[id]
	if !ok {
		return AttemptResult{}, domain.ErrQuizNotFound
	}
	a, ok := st.attempts[uid]
	if !ok {
		return AttemptResult{}, domain.ErrAttemptNotFound
	}
	end := e.now()
	a.End = &end
	log.Info().Str("module", "app.quiz").Str("quiz_id", string(id)).Str("uid", string(uid)).Msg("ended")
	return AttemptResult{Attempt: a.Clone(), Users: st.users()}, nil
}

func (e *QuizEngine) Leaderboard(id domain.QuizID) ([]domain.LeaderboardEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.quizzes[id]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return st.leaderboard(), nil
}

// List returns every quiz, oldest first.
func (e *QuizEngine) List() []QuizView {
	e.mu.RLock()
	out := lo.MapToSlice(e.quizzes, func(_ domain.QuizID, st *quizState) QuizView { return st.view() })
	e.mu.RUnlock()
	slices.SortFunc(out, func(a, b QuizView) int {
		if c := a.Quiz.CreatedAt.Compare(b.Quiz.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Quiz.ID, b.Quiz.ID)
	})
	return out
}

// Record snapshots a quiz with its attempts for persistence.
func (e *QuizEngine) Record(id domain.QuizID) (core.QuizRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.quizzes[id]
	if !ok {
		return core.QuizRecord{}, false
	}
	return st.record(), true
}

// ActiveOf lists the quizzes where uid holds an open attempt.
func (e *QuizEngine) ActiveOf(uid domain.UserID) []domain.QuizID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []domain.QuizID
	for id, st := range e.quizzes {
		if a, ok := st.attempts[uid]; ok && a.Active() {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Restore loads persisted quizzes. Counters are recomputed from the answers
// so answered always equals correct plus incorrect.
func (e *QuizEngine) Restore(records []core.QuizRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		st := newQuizState(rec.Quiz.Clone())
		for _, a := range rec.Attempts {
			a := a.Clone()
			a.Correct, a.Incorrect, a.Answered = 0, 0, 0
			for qid, ans := range a.Answers {
				i, ok := st.index[qid]
				if !ok {
					delete(a.Answers, qid)
					continue
				}
				ans.Correct = st.quiz.Questions[i].Answer == ans.Response
				a.Answers[qid] = ans
				a.Answered++
				if ans.Correct {
					a.Correct++
				} else {
					a.Incorrect++
				}
			}
			st.attempts[a.UID] = &a
		}
		e.quizzes[st.quiz.ID] = st
	}
	log.Info().Str("module", "app.quiz").Int("quizzes", len(records)).Msg("restored")
}
