package sqlcgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Allocation struct {
	AllocationID pgtype.UUID
	QuizID       string
	RequesterID  string
	Generation   int64
	Policy       string
	QuestionIds  []string
	PerSection   []byte
	Shortfall    []byte
	CreatedAt    pgtype.Timestamptz
}

type QuizLedger struct {
	QuizID     string
	Generation int64
	UpdatedAt  pgtype.Timestamptz
}

type AvailableQuestion struct {
	QuestionID string
	SectionID  pgtype.Text
	Difficulty string
	Content    []byte
}
