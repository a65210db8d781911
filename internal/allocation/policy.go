package allocation

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a quiz's remaining pool cannot satisfy a
// quota.
type Policy string

const (
	// PolicyStrict fails the request and changes nothing.
	PolicyStrict Policy = "strict"
	// PolicyRecycle starts a new generation and retries once.
	PolicyRecycle Policy = "recycle"
	// PolicyBestEffort commits whatever is available and reports the shortfall.
	PolicyBestEffort Policy = "best_effort"
)

// ParsePolicy maps a config or request value to a Policy. Empty input yields
// fallback.
func ParsePolicy(raw string, fallback Policy) (Policy, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return fallback, nil
	}
	switch p := Policy(strings.ReplaceAll(raw, "-", "_")); p {
	case PolicyStrict, PolicyRecycle, PolicyBestEffort:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
}

// plan is the outcome of checking a quota against the remaining pool.
type plan struct {
	quota      []SectionQuota
	available  map[string][]string
	generation int64
	recycled   bool
	shortfall  map[string]int
}

// planReservation applies the exhaustion policy to a resolved quota. It never
// mutates ledger; a recycle is expressed through plan.recycled and applied by
// the ledger store at commit time.
func planReservation(quizID string, policy Policy, quota ResolvedQuota, snap Snapshot, ledger *ConsumedLedger) (plan, error) {
	p, short := checkAvailability(quota, snap, ledger, ledger.Generation)
	if len(short) == 0 {
		return p, nil
	}

	switch policy {
	case PolicyRecycle:
		p, short = checkAvailability(quota, snap, ledger, ledger.Generation+1)
		if len(short) == 0 {
			p.recycled = true
			return p, nil
		}
	case PolicyBestEffort:
		reduced := make([]SectionQuota, 0, len(p.quota))
		p.shortfall = make(map[string]int, len(short))
		for _, s := range short {
			p.shortfall[s.SectionID] = s.Missing()
		}
		total := 0
		for _, q := range p.quota {
			n := min(q.RequestedCount, len(p.available[q.SectionID]))
			total += n
			if n > 0 {
				reduced = append(reduced, SectionQuota{SectionID: q.SectionID, RequestedCount: n})
			}
		}
		if total > 0 {
			p.quota = reduced
			return p, nil
		}
	}

	return plan{}, &InsufficientPoolError{QuizID: quizID, Sections: short}
}

func checkAvailability(quota ResolvedQuota, snap Snapshot, ledger *ConsumedLedger, generation int64) (plan, []SectionShortfall) {
	p := plan{
		quota:      quota.Sections,
		available:  make(map[string][]string, len(quota.Sections)),
		generation: generation,
	}
	var short []SectionShortfall
	for _, q := range quota.Sections {
		free := ledger.Available(snap[q.SectionID], generation)
		p.available[q.SectionID] = free
		if len(free) < q.RequestedCount {
			short = append(short, SectionShortfall{
				SectionID: q.SectionID,
				Requested: q.RequestedCount,
				Available: len(free),
			})
		}
	}
	return p, short
}
