package allocation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Difficulty is the coarse difficulty bucket stored on every bank question.
type Difficulty string

// Difficulty constants for readability.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes user input into a Difficulty.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// FlatSection keys the single implicit section of a flat quota.
const FlatSection = "*"

// QuestionRecord is the read-only view of a bank question. SectionID is empty
// for questions that are not attached to any section.
type QuestionRecord struct {
	ID         string
	SectionID  string
	Difficulty Difficulty
	Content    json.RawMessage
}

// SectionQuota requests a number of questions from one section.
type SectionQuota struct {
	SectionID      string `json:"section_id"`
	RequestedCount int    `json:"count"`
}

// QuotaSpec is the caller-facing quota. Either Sections or TotalCount is set;
// when both are present the section breakdown wins.
type QuotaSpec struct {
	Sections   []SectionQuota
	Difficulty *Difficulty
	TotalCount *int
}

// QuotaKind tags a ResolvedQuota.
type QuotaKind int

const (
	QuotaFlat QuotaKind = iota + 1
	QuotaBySection
)

func (k QuotaKind) String() string {
	switch k {
	case QuotaFlat:
		return "flat"
	case QuotaBySection:
		return "by_section"
	default:
		return "unknown"
	}
}

// Kind reports which ResolvedQuota variant qs resolves to.
func (qs QuotaSpec) Kind() QuotaKind {
	if len(qs.Sections) > 0 {
		return QuotaBySection
	}
	return QuotaFlat
}

// ResolvedQuota is a validated quota with zero-count sections removed.
// A flat quota carries exactly one entry keyed by FlatSection.
type ResolvedQuota struct {
	Kind     QuotaKind
	Sections []SectionQuota
}

// Total returns the number of questions the quota asks for.
func (q ResolvedQuota) Total() int {
	total := 0
	for _, s := range q.Sections {
		total += s.RequestedCount
	}
	return total
}

// SectionCount reports how many questions one section contributed.
type SectionCount struct {
	SectionID string `json:"section_id"`
	Count     int    `json:"count"`
}

// Allocation is a committed, immutable hand-out of questions to one requester.
type Allocation struct {
	ID          string         `json:"allocation_id"`
	QuizID      string         `json:"quiz_id"`
	RequesterID string         `json:"requester_id"`
	QuestionIDs []string       `json:"question_ids"`
	PerSection  []SectionCount `json:"per_section"`
	Generation  int64          `json:"generation"`
	Policy      Policy         `json:"policy"`
	Shortfall   map[string]int `json:"shortfall,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Request is the input to Coordinator.Allocate.
type Request struct {
	QuizID      string
	RequesterID string
	Quota       QuotaSpec
	Policy      Policy
}

// Result is what Allocate hands back to the quiz-taking flow.
type Result struct {
	AllocationID string         `json:"allocation_id"`
	QuestionIDs  []string       `json:"question_ids"`
	PerSection   []SectionCount `json:"per_section"`
	Generation   int64          `json:"generation"`
	Shortfall    map[string]int `json:"shortfall,omitempty"`
}

func resultFrom(a Allocation) Result {
	return Result{
		AllocationID: a.ID,
		QuestionIDs:  a.QuestionIDs,
		PerSection:   a.PerSection,
		Generation:   a.Generation,
		Shortfall:    a.Shortfall,
	}
}
