package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quiz-allocator/internal/allocation"
	sqlcgen "github.com/gokatarajesh/quiz-allocator/internal/db/sqlc"
)

type ledgerStore interface {
	EnsureQuizLedger(ctx context.Context, quizID string) error
	GetQuizGeneration(ctx context.Context, quizID string) (int64, error)
	ListConsumedQuestionIDs(ctx context.Context, arg sqlcgen.ListConsumedQuestionIDsParams) ([]string, error)
	GetAllocation(ctx context.Context, allocationID pgtype.UUID) (sqlcgen.Allocation, error)
}

type ledgerTxStore interface {
	EnsureQuizLedger(ctx context.Context, quizID string) error
	GetQuizLedgerForUpdate(ctx context.Context, quizID string) (sqlcgen.QuizLedger, error)
	BumpGeneration(ctx context.Context, quizID string) (int64, error)
	InsertAllocation(ctx context.Context, arg sqlcgen.InsertAllocationParams) error
	InsertAllocationQuestions(ctx context.Context, arg sqlcgen.InsertAllocationQuestionsParams) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerRepository persists consumed ledgers and allocations in Postgres.
// The allocation_questions primary key backs the no-duplicates guarantee even
// if two nodes race past their locks.
type LedgerRepository struct {
	db      txBeginner
	store   ledgerStore
	txStore func(tx pgx.Tx) ledgerTxStore
}

var _ allocation.LedgerStore = (*LedgerRepository)(nil)

func NewLedgerRepository(db txBeginner, queries *sqlcgen.Queries) *LedgerRepository {
	return &LedgerRepository{
		db:    db,
		store: queries,
		txStore: func(tx pgx.Tx) ledgerTxStore {
			return queries.WithTx(tx)
		},
	}
}

// Load reads the quiz's current generation and its consumed ids.
func (r *LedgerRepository) Load(ctx context.Context, quizID string) (*allocation.ConsumedLedger, error) {
	if err := r.store.EnsureQuizLedger(ctx, quizID); err != nil {
		return nil, fmt.Errorf("ensure ledger: %w", err)
	}
	generation, err := r.store.GetQuizGeneration(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	consumed, err := r.store.ListConsumedQuestionIDs(ctx, sqlcgen.ListConsumedQuestionIDsParams{
		QuizID:     quizID,
		Generation: generation,
	})
	if err != nil {
		return nil, fmt.Errorf("list consumed: %w", err)
	}
	return allocation.NewConsumedLedger(quizID, generation, consumed), nil
}

// Commit writes alloc and its question reservations in one transaction.
func (r *LedgerRepository) Commit(ctx context.Context, alloc allocation.Allocation, recycled bool) (err error) {
	params, err := toInsertParams(alloc)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q := r.txStore(tx)
	if err = q.EnsureQuizLedger(ctx, alloc.QuizID); err != nil {
		return fmt.Errorf("ensure ledger: %w", err)
	}
	ledger, err := q.GetQuizLedgerForUpdate(ctx, alloc.QuizID)
	if err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}

	expected := alloc.Generation
	if recycled {
		expected--
	}
	if ledger.Generation != expected {
		return fmt.Errorf("%w: quiz %s at generation %d, expected %d", allocation.ErrLedgerConflict, alloc.QuizID, ledger.Generation, expected)
	}
	if recycled {
		if _, err = q.BumpGeneration(ctx, alloc.QuizID); err != nil {
			return fmt.Errorf("bump generation: %w", err)
		}
	}

	if err = q.InsertAllocation(ctx, params); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	if len(alloc.QuestionIDs) > 0 {
		err = q.InsertAllocationQuestions(ctx, sqlcgen.InsertAllocationQuestionsParams{
			QuizID:       alloc.QuizID,
			Generation:   alloc.Generation,
			QuestionIds:  alloc.QuestionIDs,
			AllocationID: params.AllocationID,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %w", allocation.ErrLedgerConflict, err)
			}
			return fmt.Errorf("reserve questions: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Reset bumps the quiz's generation.
func (r *LedgerRepository) Reset(ctx context.Context, quizID string) (generation int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q := r.txStore(tx)
	if err = q.EnsureQuizLedger(ctx, quizID); err != nil {
		return 0, fmt.Errorf("ensure ledger: %w", err)
	}
	if generation, err = q.BumpGeneration(ctx, quizID); err != nil {
		return 0, fmt.Errorf("bump generation: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return generation, nil
}

// Get loads a committed allocation by id.
func (r *LedgerRepository) Get(ctx context.Context, allocationID string) (allocation.Allocation, error) {
	id, err := uuid.Parse(allocationID)
	if err != nil {
		return allocation.Allocation{}, allocation.ErrAllocationNotFound
	}
	row, err := r.store.GetAllocation(ctx, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return allocation.Allocation{}, allocation.ErrAllocationNotFound
		}
		return allocation.Allocation{}, err
	}
	return fromRow(row)
}

func toInsertParams(alloc allocation.Allocation) (sqlcgen.InsertAllocationParams, error) {
	id, err := uuid.Parse(alloc.ID)
	if err != nil {
		return sqlcgen.InsertAllocationParams{}, fmt.Errorf("allocation id: %w", err)
	}
	perSection, err := json.Marshal(alloc.PerSection)
	if err != nil {
		return sqlcgen.InsertAllocationParams{}, fmt.Errorf("marshal per_section: %w", err)
	}
	var shortfall []byte
	if len(alloc.Shortfall) > 0 {
		if shortfall, err = json.Marshal(alloc.Shortfall); err != nil {
			return sqlcgen.InsertAllocationParams{}, fmt.Errorf("marshal shortfall: %w", err)
		}
	}
	questionIDs := alloc.QuestionIDs
	if questionIDs == nil {
		questionIDs = []string{}
	}
	return sqlcgen.InsertAllocationParams{
		AllocationID: pgtype.UUID{Bytes: id, Valid: true},
		QuizID:       alloc.QuizID,
		RequesterID:  alloc.RequesterID,
		Generation:   alloc.Generation,
		Policy:       string(alloc.Policy),
		QuestionIds:  questionIDs,
		PerSection:   perSection,
		Shortfall:    shortfall,
		CreatedAt:    pgtype.Timestamptz{Time: alloc.CreatedAt, Valid: true},
	}, nil
}

func fromRow(row sqlcgen.Allocation) (allocation.Allocation, error) {
	alloc := allocation.Allocation{
		ID:          uuid.UUID(row.AllocationID.Bytes).String(),
		QuizID:      row.QuizID,
		RequesterID: row.RequesterID,
		QuestionIDs: row.QuestionIds,
		Generation:  row.Generation,
		Policy:      allocation.Policy(row.Policy),
		CreatedAt:   row.CreatedAt.Time,
	}
	if err := json.Unmarshal(row.PerSection, &alloc.PerSection); err != nil {
		return allocation.Allocation{}, fmt.Errorf("decode per_section: %w", err)
	}
	if len(row.Shortfall) > 0 {
		if err := json.Unmarshal(row.Shortfall, &alloc.Shortfall); err != nil {
			return allocation.Allocation{}, fmt.Errorf("decode shortfall: %w", err)
		}
	}
	return alloc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
