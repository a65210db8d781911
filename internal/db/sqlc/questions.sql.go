package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listAvailableQuestions = `-- name: ListAvailableQuestions :many
SELECT question_id::text AS question_id,
       section_id::text  AS section_id,
       difficulty,
       content
FROM questions
WHERE deleted_at IS NULL
  AND (NOT $1::bool OR COALESCE(section_id::text, '') = ANY($2::text[]))
  AND ($3::text IS NULL OR difficulty = $3::text)
ORDER BY created_at, question_id
`

type ListAvailableQuestionsParams struct {
	FilterSections bool
	SectionIds     []string
	Difficulty     pgtype.Text
}

func (q *Queries) ListAvailableQuestions(ctx context.Context, arg ListAvailableQuestionsParams) ([]AvailableQuestion, error) {
	rows, err := q.db.Query(ctx, listAvailableQuestions, arg.FilterSections, arg.SectionIds, arg.Difficulty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AvailableQuestion
	for rows.Next() {
		var i AvailableQuestion
		if err := rows.Scan(&i.QuestionID, &i.SectionID, &i.Difficulty, &i.Content); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listExistingQuestionIDs = `-- name: ListExistingQuestionIDs :many
SELECT question_id::text AS question_id
FROM questions
WHERE deleted_at IS NULL
  AND question_id::text = ANY($1::text[])
`

func (q *Queries) ListExistingQuestionIDs(ctx context.Context, questionIds []string) ([]string, error) {
	rows, err := q.db.Query(ctx, listExistingQuestionIDs, questionIds)
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
