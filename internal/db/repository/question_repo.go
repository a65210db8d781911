package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quiz-allocator/internal/allocation"
	sqlcgen "github.com/gokatarajesh/quiz-allocator/internal/db/sqlc"
)

type questionStore interface {
	ListAvailableQuestions(ctx context.Context, arg sqlcgen.ListAvailableQuestionsParams) ([]sqlcgen.AvailableQuestion, error)
	ListExistingQuestionIDs(ctx context.Context, questionIds []string) ([]string, error)
}

// QuestionRepository is the read-only question bank view used by the
// allocation engine. Soft-deleted questions are never returned.
type QuestionRepository struct {
	store questionStore
}

var _ allocation.BankStore = (*QuestionRepository)(nil)

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// ListAvailable returns bank questions matching filter at call time.
func (r *QuestionRepository) ListAvailable(ctx context.Context, filter allocation.PoolFilter) ([]allocation.QuestionRecord, error) {
	params := sqlcgen.ListAvailableQuestionsParams{
		FilterSections: len(filter.SectionIDs) > 0,
		SectionIds:     filter.SectionIDs,
	}
	if params.SectionIds == nil {
		params.SectionIds = []string{}
	}
	if filter.Difficulty != nil {
		params.Difficulty = pgtype.Text{String: string(*filter.Difficulty), Valid: true}
	}

	rows, err := r.store.ListAvailableQuestions(ctx, params)
	if err != nil {
		return nil, err
	}
	records := make([]allocation.QuestionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, allocation.QuestionRecord{
			ID:         row.QuestionID,
			SectionID:  row.SectionID.String,
			Difficulty: allocation.Difficulty(row.Difficulty),
			Content:    row.Content,
		})
	}
	return records, nil
}

// Existing reports which of ids are still live in the bank.
func (r *QuestionRepository) Existing(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found, err := r.store.ListExistingQuestionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(found))
	for _, id := range found {
		set[id] = struct{}{}
	}
	return set, nil
}
