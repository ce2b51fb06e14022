package license

import "licensor/pkg/contracts/domain"

// EvidenceKind distinguishes the two evidence allow-lists a license carries.
type EvidenceKind string

const (
	KindIP   EvidenceKind = "ip"
	KindHWID EvidenceKind = "hwid"
)

// Reason returns the audit reason code for a capacity rejection of this kind.
func (k EvidenceKind) Reason() domain.Reason {
	if k == KindIP {
		return domain.ReasonIPCapacity
	}
	return domain.ReasonHWIDCapacity
}

// Admit applies the capacity policy to one candidate: membership first
// (idempotent success, no mutation), then the cap. Admission appends,
// preserving insertion order; uniqueness is guaranteed by the membership
// check. Pure: the returned slice is the input or a new appended copy, the
// input is never modified in place.
func Admit(existing []string, candidate string, max domain.Capacity) ([]string, domain.AdmissionOutcome) {
	for _, v := range existing {
		if v == candidate {
			return existing, domain.AlreadyPresent
		}
	}
	if max.Mode == domain.CapacityBounded && len(existing) >= max.Limit {
		return existing, domain.Rejected
	}
	updated := make([]string, len(existing), len(existing)+1)
	copy(updated, existing)
	return append(updated, candidate), domain.Admitted
}

// Remaining reports how many more distinct values the allow-list can take;
// nil means no finite bound (unlimited or untracked).
func Remaining(existing []string, max domain.Capacity) *int {
	if max.Mode != domain.CapacityBounded {
		return nil
	}
	r := max.Limit - len(existing)
	if r < 0 {
		r = 0
	}
	return &r
}
