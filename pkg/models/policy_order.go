package models

import (
	"sort"
)

// SelectPrimary returns the primary policy among the non-deleted policies.
// An explicit IsPrimary flag wins; when several are flagged, or none is, the
// most recently created candidate is chosen. Ties on CreatedAt fall back to
// the larger ID so the result is deterministic. Returns nil when no live
// policy exists.
func SelectPrimary(policies []*InsurancePolicy) *InsurancePolicy {
	var primary *InsurancePolicy
	for _, p := range policies {
		if p == nil || p.Deleted() {
			continue
		}
		if primary == nil || outranks(p, primary) {
			primary = p
		}
	}
	return primary
}

func outranks(a, b *InsurancePolicy) bool {
	if a.IsPrimary != b.IsPrimary {
		return a.IsPrimary
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// OrderPolicies returns the non-deleted policies with the primary policy
// first and the remainder in creation order. The input slice is not modified.
func OrderPolicies(policies []*InsurancePolicy) []*InsurancePolicy {
	primary := SelectPrimary(policies)
	if primary == nil {
		return []*InsurancePolicy{}
	}

	rest := make([]*InsurancePolicy, 0, len(policies))
	for _, p := range policies {
		if p == nil || p.Deleted() || p == primary {
			continue
		}
		rest = append(rest, p)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if !rest[i].CreatedAt.Equal(rest[j].CreatedAt) {
			return rest[i].CreatedAt.Before(rest[j].CreatedAt)
		}
		return rest[i].ID < rest[j].ID
	})

	return append([]*InsurancePolicy{primary}, rest...)
}
