package license

import (
	"context"
	"sort"
	"time"

	"licensor/internal/store"
	"licensor/pkg/contracts/domain"
)

// LogFilter narrows an audit log query. Zero values match everything.
type LogFilter struct {
	LicenseKey string
	Outcome    domain.ValidationOutcome
	Reason     domain.Reason
	Event      domain.AuditEvent
	Since      time.Time
}

// Logs returns audit entries matching the filter, in append
// (timestamp) order. Read-only.
func (m *Manager) Logs(ctx context.Context, filter LogFilter) ([]domain.ValidationLog, error) {
	entries, err := store.Read[domain.ValidationLog](ctx, m.store, store.CollectionLogs)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.ValidationLog, 0, len(entries))
	for _, e := range entries {
		if filter.LicenseKey != "" && e.LicenseKey != NormalizeKey(filter.LicenseKey) {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if filter.Reason != "" && e.Reason != filter.Reason {
			continue
		}
		if filter.Event != "" && e.Event != filter.Event {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

// Summary is the aggregate view folded from the audit log and the license
// collection.
type Summary struct {
	TotalAttempts    int64                   `json:"totalAttempts"`
	Successes        int64                   `json:"successes"`
	Failures         int64                   `json:"failures"`
	ByReason         map[domain.Reason]int64 `json:"byReason"`
	ByCountry        map[string]int64        `json:"byCountry"`
	ByDay            map[string]int64        `json:"byDay"`
	TrackedIPUsage   int64                   `json:"trackedIpUsage"`
	TrackedHWIDUsage int64                   `json:"trackedHwidUsage"`
}

// Summarize folds the validation log into daily counts, per-reason tallies,
// and per-country breakdowns, plus current evidence usage across licenses.
// Licenses with an untracked capacity are excluded from the usage totals
// for that evidence kind. Pure read-side fold; the log's append-only,
// timestamp-ordered contract is what makes this cheap.
func (m *Manager) Summarize(ctx context.Context) (*Summary, error) {
	entries, err := m.Logs(ctx, LogFilter{Event: domain.EventValidation})
	if err != nil {
		return nil, err
	}
	licenses, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		ByReason:  make(map[domain.Reason]int64),
		ByCountry: make(map[string]int64),
		ByDay:     make(map[string]int64),
	}
	for _, e := range entries {
		s.TotalAttempts++
		if e.Outcome == domain.OutcomeSuccess {
			s.Successes++
		} else {
			s.Failures++
		}
		s.ByReason[e.Reason]++
		if e.Country != "" {
			s.ByCountry[e.Country]++
		}
		s.ByDay[e.Timestamp.UTC().Format("2006-01-02")]++
	}
	for i := range licenses {
		if licenses[i].MaxIPs.Tracked() {
			s.TrackedIPUsage += int64(len(licenses[i].AllowedIPs))
		}
		if licenses[i].MaxHWIDs.Tracked() {
			s.TrackedHWIDUsage += int64(len(licenses[i].AllowedHWIDs))
		}
	}
	return s, nil
}

// Days returns the summary's day keys in ascending order, for stable
// report rendering.
func (s *Summary) Days() []string {
	days := make([]string, 0, len(s.ByDay))
	for d := range s.ByDay {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}
