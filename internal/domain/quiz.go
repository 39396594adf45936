package domain

import (
	"maps"
	"slices"
	"time"
)

type (
	QuizID     string
	QuestionID string
)

type Question struct {
	ID      QuestionID `json:"id"`
	Prompt  string     `json:"question"`
	Options []string   `json:"options"`
	Answer  string     `json:"answer"`
}

type Quiz struct {
	ID           QuizID     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Host         UserID     `json:"host"`
	CreatedAt    time.Time  `json:"createdDate"`
	LastModified time.Time  `json:"lastModified"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	Questions    []Question `json:"questions"`
}

// AnswerRecord is the latest selection of one user for one question.
type AnswerRecord struct {
	Response string    `json:"response"`
	Correct  bool      `json:"correct"`
	At       time.Time `json:"at"`
}

// Attempt is one user's progress against one quiz. The counters are a
// materialized view over Answers.
type Attempt struct {
	UID           UserID                      `json:"uid"`
	Start         time.Time                   `json:"start"`
	End           *time.Time                  `json:"end"`
	Attempt       int                         `json:"attempt"`
	LastContinued time.Time                   `json:"lastContinued"`
	LastUpdated   time.Time                   `json:"lastUpdated"`
	Correct       int                         `json:"correct"`
	Incorrect     int                         `json:"incorrect"`
	Answered      int                         `json:"answered"`
	Answers       map[QuestionID]AnswerRecord `json:"answers"`
}

func (a *Attempt) Active() bool { return a.End == nil }

func (a *Attempt) Clone() Attempt {
	out := *a
	if a.End != nil {
		end := *a.End
		out.End = &end
	}
	out.Answers = maps.Clone(a.Answers)
	if out.Answers == nil {
		out.Answers = make(map[QuestionID]AnswerRecord)
	}
	return out
}

func (q *Quiz) Clone() Quiz {
	out := *q
	out.Questions = slices.Clone(q.Questions)
	for i := range out.Questions {
		out.Questions[i].Options = slices.Clone(out.Questions[i].Options)
	}
	return out
}

// LeaderboardEntry is one ranked line of a quiz leaderboard.
type LeaderboardEntry struct {
	UID         UserID    `json:"uid"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Answered    int       `json:"answered"`
	LastUpdated time.Time `json:"lastUpdated"`
	Finished    bool      `json:"finished"`
}
