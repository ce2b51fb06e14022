package license

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"licensor/internal/store"
	"licensor/pkg/contracts/domain"
)

// ValidateRequest carries one validation attempt. Identity is the
// authenticated caller identity supplied by the transport layer; the engine
// never parses credentials itself. IP and HWID are optional evidence.
type ValidateRequest struct {
	Key      string
	Identity string
	IP       string
	HWID     string
	// Country is optional geolocation resolved by the caller, recorded in
	// the audit log only.
	Country string
}

// ValidateResult reports the outcome of one validation attempt. Business
// denials are results, not errors: only storage failures surface as errors
// from Validate.
type ValidateResult struct {
	OK     bool
	Reason domain.Reason
	// License is the post-mutation view; set only on success.
	License *domain.License
	// Per-evidence-kind outcomes. A request carrying both kinds reports
	// each independently; admission is still all-or-nothing.
	IPOutcome   domain.AdmissionOutcome
	HWIDOutcome domain.AdmissionOutcome
	// Remaining capacity per kind after the attempt; nil when the kind is
	// unbounded, untracked, or was not supplied.
	IPRemaining   *int
	HWIDRemaining *int
}

// Validate runs the full orchestration: lookup, blacklist gate,
// authorization, usability, capacity policy, then the durable write-back
// and audit append. The entire read-modify-write against the license
// collection happens inside one store Transform, so concurrent validations
// against the same collection serialize and can never over-admit.
//
// Already-admitted evidence validates idempotently: the attempt succeeds,
// the allow-lists do not grow, and the validations counter still
// increments; repeat validations count as usage.
func (m *Manager) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	ctx, span := m.tracer.Start(ctx, "license.validate",
		trace.WithAttributes(
			attribute.String("license.key", req.Key),
			attribute.Bool("evidence.ip", req.IP != ""),
			attribute.Bool("evidence.hwid", req.HWID != ""),
		),
	)
	defer span.End()
	start := m.now()

	key := NormalizeKey(req.Key)
	result := &ValidateResult{
		IPOutcome:   domain.NotSupplied,
		HWIDOutcome: domain.NotSupplied,
	}

	blacklist, err := m.Blacklist(ctx)
	if err != nil {
		return nil, err
	}

	err = store.Transform(ctx, m.store, store.CollectionLicenses, func(items []domain.License) ([]domain.License, error) {
		idx := -1
		for i := range items {
			if items[i].Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			result.Reason = domain.ReasonNotFound
			return nil, store.ErrAborted
		}
		lic := &items[idx]

		// The blacklist veto precedes every license-specific signal.
		if Denied(blacklist, req.Identity, req.IP, req.HWID) {
			result.Reason = domain.ReasonBlacklisted
			return nil, store.ErrAborted
		}

		if !lic.IsAuthorized(req.Identity) {
			result.Reason = domain.ReasonUnauthorized
			return nil, store.ErrAborted
		}

		now := m.now()
		if lic.IsExpired(now) {
			result.Reason = domain.ReasonExpired
			return nil, store.ErrAborted
		}
		if lic.Status != domain.LicenseStatusActive {
			result.Reason = domain.ReasonInactive
			return nil, store.ErrAborted
		}

		// Capacity policy, one pass per supplied kind. Any rejection
		// fails the whole request: no partial binding from one call.
		ips, hwids := lic.AllowedIPs, lic.AllowedHWIDs
		if req.IP != "" {
			ips, result.IPOutcome = Admit(ips, req.IP, lic.MaxIPs)
		}
		if req.HWID != "" {
			hwids, result.HWIDOutcome = Admit(hwids, req.HWID, lic.MaxHWIDs)
		}
		if result.IPOutcome == domain.Rejected || result.HWIDOutcome == domain.Rejected {
			if result.IPOutcome == domain.Rejected {
				result.Reason = domain.ReasonIPCapacity
			} else {
				result.Reason = domain.ReasonHWIDCapacity
			}
			result.IPRemaining = Remaining(lic.AllowedIPs, lic.MaxIPs)
			result.HWIDRemaining = Remaining(lic.AllowedHWIDs, lic.MaxHWIDs)
			return nil, store.ErrAborted
		}

		lic.AllowedIPs, lic.AllowedHWIDs = ips, hwids
		lic.Validations++
		lic.UpdatedAt = now.UTC()

		result.OK = true
		result.Reason = domain.ReasonOK
		result.IPRemaining = Remaining(lic.AllowedIPs, lic.MaxIPs)
		result.HWIDRemaining = Remaining(lic.AllowedHWIDs, lic.MaxHWIDs)
		view := *lic
		result.License = &view
		return items, nil
	})
	if err != nil && !errors.Is(err, store.ErrAborted) {
		span.RecordError(err)
		return nil, err
	}

	outcome := domain.OutcomeFailure
	if result.OK {
		outcome = domain.OutcomeSuccess
	}
	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventValidation,
		LicenseKey: key,
		Identity:   req.Identity,
		Outcome:    outcome,
		Reason:     result.Reason,
		IP:         req.IP,
		HWID:       req.HWID,
		Country:    req.Country,
	})
	m.recordMetrics(ctx, req, result, m.now().Sub(start))

	m.logger.InfoContext(ctx, "validation attempt",
		slog.String("key", key),
		slog.String("identity", req.Identity),
		slog.String("outcome", string(outcome)),
		slog.String("reason", string(result.Reason)),
		slog.String("ip_outcome", string(result.IPOutcome)),
		slog.String("hwid_outcome", string(result.HWIDOutcome)),
	)
	span.SetAttributes(
		attribute.String("validation.outcome", string(outcome)),
		attribute.String("validation.reason", string(result.Reason)),
	)
	return result, nil
}

func (m *Manager) recordMetrics(ctx context.Context, req ValidateRequest, result *ValidateResult, elapsed time.Duration) {
	if m.metrics == nil {
		return
	}
	outcome := "failure"
	if result.OK {
		outcome = "success"
	}
	m.metrics.Attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", string(result.Reason)),
	))
	if result.IPOutcome == domain.Admitted {
		m.metrics.Admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(KindIP))))
	}
	if result.HWIDOutcome == domain.Admitted {
		m.metrics.Admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(KindHWID))))
	}
	if result.IPOutcome == domain.Rejected {
		m.metrics.Rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(KindIP))))
	}
	if result.HWIDOutcome == domain.Rejected {
		m.metrics.Rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(KindHWID))))
	}
	m.metrics.Latency.Record(ctx, elapsed.Seconds())
}
