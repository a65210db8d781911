package allocation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLedgerConflict     = errors.New("ledger changed concurrently")
	ErrDoubleReservation  = errors.New("question already reserved in this generation")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrLockTimeout        = errors.New("timed out waiting for quiz lock")
	ErrInvalidPolicy      = errors.New("invalid exhaustion policy")
	ErrMissingQuiz        = errors.New("quiz id is required")
)

// SectionShortfall describes one section that cannot satisfy its quota.
type SectionShortfall struct {
	SectionID string `json:"section_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Missing is the number of questions the section is short by.
func (s SectionShortfall) Missing() int {
	if s.Requested <= s.Available {
		return 0
	}
	return s.Requested - s.Available
}

// InvalidQuotaError is returned when the quota cannot be met by the pool as a
// whole. Every failing section is listed so callers can fix them together.
type InvalidQuotaError struct {
	Reason   string
	Sections []SectionShortfall
}

func (e *InvalidQuotaError) Error() string {
	if len(e.Sections) == 0 {
		return "invalid quota: " + e.Reason
	}
	return "invalid quota: " + describeShortfalls(e.Sections)
}

// InsufficientPoolError is returned when the remaining (unconsumed) pool of a
// quiz cannot satisfy the quota at reservation time.
type InsufficientPoolError struct {
	QuizID   string
	Sections []SectionShortfall
	Cause    error
}

func (e *InsufficientPoolError) Error() string {
	msg := fmt.Sprintf("insufficient pool for quiz %s", e.QuizID)
	if len(e.Sections) > 0 {
		msg += ": " + describeShortfalls(e.Sections)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InsufficientPoolError) Unwrap() error { return e.Cause }

// ConcurrentModificationError reports drawn questions that vanished from the
// bank between snapshot and commit.
type ConcurrentModificationError struct {
	Missing []string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("questions removed during allocation: %s", strings.Join(e.Missing, ","))
}

func describeShortfalls(sections []SectionShortfall) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("%s: need %d, have %d", s.SectionID, s.Requested, s.Available))
	}
	return strings.Join(parts, "; ")
}
