package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const ensureQuizLedger = `-- name: EnsureQuizLedger :exec
INSERT INTO quiz_ledgers (quiz_id) VALUES ($1)
ON CONFLICT (quiz_id) DO NOTHING
`

func (q *Queries) EnsureQuizLedger(ctx context.Context, quizID string) error {
	_, err := q.db.Exec(ctx, ensureQuizLedger, quizID)
	return err
}

const getQuizGeneration = `-- name: GetQuizGeneration :one
SELECT generation FROM quiz_ledgers WHERE quiz_id = $1
`

func (q *Queries) GetQuizGeneration(ctx context.Context, quizID string) (int64, error) {
	row := q.db.QueryRow(ctx, getQuizGeneration, quizID)
	var generation int64
	err := row.Scan(&generation)
	return generation, err
}

const getQuizLedgerForUpdate = `-- name: GetQuizLedgerForUpdate :one
SELECT quiz_id, generation, updated_at FROM quiz_ledgers WHERE quiz_id = $1 FOR UPDATE
`

func (q *Queries) GetQuizLedgerForUpdate(ctx context.Context, quizID string) (QuizLedger, error) {
	row := q.db.QueryRow(ctx, getQuizLedgerForUpdate, quizID)
	var i QuizLedger
	err := row.Scan(&i.QuizID, &i.Generation, &i.UpdatedAt)
	return i, err
}

const bumpGeneration = `-- name: BumpGeneration :one
UPDATE quiz_ledgers
SET generation = generation + 1, updated_at = now()
WHERE quiz_id = $1
RETURNING generation
`

func (q *Queries) BumpGeneration(ctx context.Context, quizID string) (int64, error) {
	row := q.db.QueryRow(ctx, bumpGeneration, quizID)
	var generation int64
	err := row.Scan(&generation)
	return generation, err
}

const listConsumedQuestionIDs = `-- name: ListConsumedQuestionIDs :many
SELECT question_id FROM allocation_questions
WHERE quiz_id = $1 AND generation = $2
`

type ListConsumedQuestionIDsParams struct {
	QuizID     string
	Generation int64
}

func (q *Queries) ListConsumedQuestionIDs(ctx context.Context, arg ListConsumedQuestionIDsParams) ([]string, error) {
	rows, err := q.db.Query(ctx, listConsumedQuestionIDs, arg.QuizID, arg.Generation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var questionID string
		if err := rows.Scan(&questionID); err != nil {
			return nil, err
		}
		items = append(items, questionID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertAllocation = `-- name: InsertAllocation :exec
INSERT INTO allocations (
    allocation_id, quiz_id, requester_id, generation, policy,
    question_ids, per_section, shortfall, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertAllocationParams struct {
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

func (q *Queries) InsertAllocation(ctx context.Context, arg InsertAllocationParams) error {
	_, err := q.db.Exec(ctx, insertAllocation,
		arg.AllocationID,
		arg.QuizID,
		arg.RequesterID,
		arg.Generation,
		arg.Policy,
		arg.QuestionIds,
		arg.PerSection,
		arg.Shortfall,
		arg.CreatedAt,
	)
	return err
}

const insertAllocationQuestions = `-- name: InsertAllocationQuestions :exec
INSERT INTO allocation_questions (quiz_id, generation, question_id, allocation_id)
SELECT $1::text, $2::bigint, unnest($3::text[]), $4::uuid
`

type InsertAllocationQuestionsParams struct {
	QuizID       string
	Generation   int64
	QuestionIds  []string
	AllocationID pgtype.UUID
}

func (q *Queries) InsertAllocationQuestions(ctx context.Context, arg InsertAllocationQuestionsParams) error {
	_, err := q.db.Exec(ctx, insertAllocationQuestions,
		arg.QuizID,
		arg.Generation,
		arg.QuestionIds,
		arg.AllocationID,
	)
	return err
}

const getAllocation = `-- name: GetAllocation :one
SELECT allocation_id, quiz_id, requester_id, generation, policy,
       question_ids, per_section, shortfall, created_at
FROM allocations
WHERE allocation_id = $1
`

func (q *Queries) GetAllocation(ctx context.Context, allocationID pgtype.UUID) (Allocation, error) {
	row := q.db.QueryRow(ctx, getAllocation, allocationID)
	var i Allocation
	err := row.Scan(
		&i.AllocationID,
		&i.QuizID,
		&i.RequesterID,
		&i.Generation,
		&i.Policy,
		&i.QuestionIds,
		&i.PerSection,
		&i.Shortfall,
		&i.CreatedAt,
	)
	return i, err
}
