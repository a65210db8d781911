package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gokatarajesh/quiz-allocator/internal/allocation"
	sqlcgen "github.com/gokatarajesh/quiz-allocator/internal/db/sqlc"
)

type mockQuestionStore struct {
	mock.Mock
}

func (m *mockQuestionStore) ListAvailableQuestions(ctx context.Context, arg sqlcgen.ListAvailableQuestionsParams) ([]sqlcgen.AvailableQuestion, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.AvailableQuestion), args.Error(1)
}

func (m *mockQuestionStore) ListExistingQuestionIDs(ctx context.Context, questionIds []string) ([]string, error) {
	args := m.Called(ctx, questionIds)
	return args.Get(0).([]string), args.Error(1)
}

func TestQuestionRepository_ListAvailableMapsRows(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	medium := allocation.DifficultyMedium
	params := sqlcgen.ListAvailableQuestionsParams{
		FilterSections: true,
		SectionIds:     []string{"math"},
		Difficulty:     pgtype.Text{String: "medium", Valid: true},
	}
	store.On("ListAvailableQuestions", mock.Anything, params).Return([]sqlcgen.AvailableQuestion{
		{QuestionID: "q1", SectionID: pgtype.Text{String: "math", Valid: true}, Difficulty: "medium", Content: []byte(`{}`)},
		{QuestionID: "q2", Difficulty: "medium"},
	}, nil)

	got, err := repo.ListAvailable(context.Background(), allocation.PoolFilter{
		SectionIDs: []string{"math"},
		Difficulty: &medium,
	})
	assert.NoError(t, err)
	assert.Equal(t, []allocation.QuestionRecord{
		{ID: "q1", SectionID: "math", Difficulty: allocation.DifficultyMedium, Content: []byte(`{}`)},
		{ID: "q2", SectionID: "", Difficulty: allocation.DifficultyMedium},
	}, got)
	store.AssertExpectations(t)
}

func TestQuestionRepository_ListAvailableWithoutFilter(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	params := sqlcgen.ListAvailableQuestionsParams{SectionIds: []string{}}
	store.On("ListAvailableQuestions", mock.Anything, params).Return([]sqlcgen.AvailableQuestion(nil), errors.New("db down"))

	_, err := repo.ListAvailable(context.Background(), allocation.PoolFilter{})
	assert.EqualError(t, err, "db down")
	store.AssertExpectations(t)
}

func TestQuestionRepository_Existing(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("ListExistingQuestionIDs", mock.Anything, []string{"a", "b", "c"}).Return([]string{"a", "c"}, nil)

	got, err := repo.Existing(context.Background(), []string{"a", "b", "c"})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.NotContains(t, got, "b")
	store.AssertExpectations(t)
}
