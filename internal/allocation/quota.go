package allocation

// FilterFor derives the snapshot filter a quota needs.
func FilterFor(qs QuotaSpec) PoolFilter {
	filter := PoolFilter{Difficulty: qs.Difficulty}
	if len(qs.Sections) > 0 {
		filter.SectionIDs = make([]string, 0, len(qs.Sections))
		for _, s := range qs.Sections {
			filter.SectionIDs = append(filter.SectionIDs, s.SectionID)
		}
	}
	return filter
}

// Resolve validates a quota against a snapshot and normalizes it into a
// ResolvedQuota. Every section that exceeds its pool is reported at once.
// A flat quota is checked against the whole snapshot, flattened or not.
func Resolve(qs QuotaSpec, snap Snapshot) (ResolvedQuota, error) {
	if qs.Kind() == QuotaBySection {
		return resolveBySection(qs.Sections, snap)
	}
	if qs.TotalCount == nil {
		return ResolvedQuota{}, &InvalidQuotaError{Reason: "quota needs sections or total_count"}
	}

	total := *qs.TotalCount
	if total < 0 {
		return ResolvedQuota{}, &InvalidQuotaError{Reason: "total_count must not be negative"}
	}
	resolved := ResolvedQuota{Kind: QuotaFlat}
	if total == 0 {
		return resolved, nil
	}
	if available := snap.Size(); total > available {
		return ResolvedQuota{}, &InvalidQuotaError{Sections: []SectionShortfall{{
			SectionID: FlatSection,
			Requested: total,
			Available: available,
		}}}
	}
	resolved.Sections = []SectionQuota{{SectionID: FlatSection, RequestedCount: total}}
	return resolved, nil
}

func resolveBySection(sections []SectionQuota, snap Snapshot) (ResolvedQuota, error) {
	resolved := ResolvedQuota{Kind: QuotaBySection}
	var failures []SectionShortfall
	seen := make(map[string]struct{}, len(sections))

	for _, s := range sections {
		if _, dup := seen[s.SectionID]; dup {
			return ResolvedQuota{}, &InvalidQuotaError{Reason: "section " + s.SectionID + " listed twice"}
		}
		seen[s.SectionID] = struct{}{}

		if s.RequestedCount < 0 {
			return ResolvedQuota{}, &InvalidQuotaError{Reason: "section " + s.SectionID + " has a negative count"}
		}
		if s.RequestedCount == 0 {
			continue
		}
		if available := len(snap[s.SectionID]); s.RequestedCount > available {
			failures = append(failures, SectionShortfall{
				SectionID: s.SectionID,
				Requested: s.RequestedCount,
				Available: available,
			})
			continue
		}
		resolved.Sections = append(resolved.Sections, s)
	}

	if len(failures) > 0 {
		return ResolvedQuota{}, &InvalidQuotaError{Sections: failures}
	}
	return resolved, nil
}
