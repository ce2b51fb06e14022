package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"licensor/internal/store"
	"licensor/pkg/contracts/domain"
)

// keyGenAttempts bounds the regeneration loop on key collision. With a
// 16-character alphabet-31 key a collision is effectively impossible; the
// bound only guards a broken random source.
const keyGenAttempts = 5

// IssueRequest carries the issuance parameters. MaxIPs/MaxHWIDs are the
// tagged capacities; ExpiresAt nil means non-expiring.
type IssueRequest struct {
	ProductID       string
	DiscordID       string
	DiscordUsername string
	Email           string
	MaxIPs          domain.Capacity
	MaxHWIDs        domain.Capacity
	ExpiresAt       *time.Time
}

// Issue creates a new license with a freshly generated unique key, status
// active, empty allow-lists, and zero validations. Fails with
// ErrProductNotFound when the product reference is unknown.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.issue")
	defer span.End()

	ok, err := m.productExists(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("product %q: %w", req.ProductID, ErrProductNotFound)
	}

	now := m.now().UTC()
	issued := domain.License{
		ID:                uuid.New().String(),
		ProductID:         req.ProductID,
		DiscordID:         req.DiscordID,
		DiscordUsername:   req.DiscordUsername,
		Email:             req.Email,
		SubUserDiscordIDs: []string{},
		Status:            domain.LicenseStatusActive,
		ExpiresAt:         req.ExpiresAt,
		AllowedIPs:        []string{},
		AllowedHWIDs:      []string{},
		MaxIPs:            req.MaxIPs,
		MaxHWIDs:          req.MaxHWIDs,
		Validations:       0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = store.Transform(ctx, m.store, store.CollectionLicenses, func(items []domain.License) ([]domain.License, error) {
		for attempt := 0; attempt < keyGenAttempts; attempt++ {
			key, err := GenerateKey(m.keyPrefix)
			if err != nil {
				return nil, err
			}
			if !keyTaken(items, key) {
				issued.Key = key
				return append(items, issued), nil
			}
		}
		return nil, ErrKeyExhausted
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventIssue,
		LicenseKey: issued.Key,
		Identity:   issued.DiscordID,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	m.logger.InfoContext(ctx, "license issued",
		slog.String("key", issued.Key),
		slog.String("product_id", issued.ProductID),
		slog.String("owner", issued.DiscordID),
		slog.String("max_ips", issued.MaxIPs.String()),
		slog.String("max_hwids", issued.MaxHWIDs.String()),
	)
	return &issued, nil
}

// Renew sets a new expiry and forces the license back to active. Expiry
// alone never flips status; renewal is the one operation that does both.
func (m *Manager) Renew(ctx context.Context, key string, expiresAt time.Time) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.renew")
	defer span.End()

	updated, err := m.updateLicense(ctx, key, func(lic *domain.License) error {
		lic.ExpiresAt = &expiresAt
		lic.Status = domain.LicenseStatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventRenew,
		LicenseKey: updated.Key,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	m.logger.InfoContext(ctx, "license renewed",
		slog.String("key", updated.Key),
		slog.Time("expires_at", expiresAt),
	)
	return updated, nil
}

// SetStatus overwrites the administrative status without touching expiry.
func (m *Manager) SetStatus(ctx context.Context, key string, status domain.LicenseStatus) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.set_status")
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}

	updated, err := m.updateLicense(ctx, key, func(lic *domain.License) error {
		lic.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventStatusChange,
		LicenseKey: updated.Key,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	m.logger.InfoContext(ctx, "license status set",
		slog.String("key", updated.Key),
		slog.String("status", string(status)),
	)
	return updated, nil
}

// AddSubUser delegates validation rights on the license to identity. The
// owner can never be its own sub-user; duplicates are a conflict.
func (m *Manager) AddSubUser(ctx context.Context, key, identity string) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.add_sub_user")
	defer span.End()

	updated, err := m.updateLicense(ctx, key, func(lic *domain.License) error {
		if identity == lic.DiscordID {
			return ErrOwnerSubUser
		}
		if lic.IsSubUser(identity) {
			return ErrDuplicateSubUser
		}
		lic.SubUserDiscordIDs = append(lic.SubUserDiscordIDs, identity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventSubUserAdd,
		LicenseKey: updated.Key,
		Identity:   identity,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	return updated, nil
}

// RemoveSubUser revokes a delegation. Absent identity is ErrSubUserNotFound.
func (m *Manager) RemoveSubUser(ctx context.Context, key, identity string) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.remove_sub_user")
	defer span.End()

	updated, err := m.updateLicense(ctx, key, func(lic *domain.License) error {
		for i, id := range lic.SubUserDiscordIDs {
			if id == identity {
				lic.SubUserDiscordIDs = append(lic.SubUserDiscordIDs[:i], lic.SubUserDiscordIDs[i+1:]...)
				return nil
			}
		}
		return ErrSubUserNotFound
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventSubUserRemove,
		LicenseKey: updated.Key,
		Identity:   identity,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	return updated, nil
}

// PatchIdentity inserts evidence directly, administratively, under the same
// capacity policy as the validation path. All-or-nothing: if either supplied
// kind is rejected, neither is recorded.
func (m *Manager) PatchIdentity(ctx context.Context, key, ip, hwid string) (*domain.License, error) {
	ctx, span := m.tracer.Start(ctx, "license.patch_identity")
	defer span.End()

	if ip == "" && hwid == "" {
		return nil, ErrNoEvidence
	}

	updated, err := m.updateLicense(ctx, key, func(lic *domain.License) error {
		ips, hwids := lic.AllowedIPs, lic.AllowedHWIDs
		if ip != "" {
			var outcome domain.AdmissionOutcome
			ips, outcome = Admit(ips, ip, lic.MaxIPs)
			if outcome == domain.Rejected {
				return &CapacityError{Kind: KindIP, Max: lic.MaxIPs.String()}
			}
		}
		if hwid != "" {
			var outcome domain.AdmissionOutcome
			hwids, outcome = Admit(hwids, hwid, lic.MaxHWIDs)
			if outcome == domain.Rejected {
				return &CapacityError{Kind: KindHWID, Max: lic.MaxHWIDs.String()}
			}
		}
		lic.AllowedIPs, lic.AllowedHWIDs = ips, hwids
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventIdentityPatch,
		LicenseKey: updated.Key,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
		IP:         ip,
		HWID:       hwid,
	})
	return updated, nil
}

// updateLicense looks up key inside a license-collection Transform, applies
// fn to the working copy, refreshes updatedAt, and writes the whole
// collection back. fn errors abort the write. The returned copy reflects
// the persisted record, refreshed timestamp included.
func (m *Manager) updateLicense(ctx context.Context, key string, fn func(lic *domain.License) error) (*domain.License, error) {
	key = NormalizeKey(key)
	var updated domain.License
	err := store.Transform(ctx, m.store, store.CollectionLicenses, func(items []domain.License) ([]domain.License, error) {
		for i := range items {
			if items[i].Key == key {
				if err := fn(&items[i]); err != nil {
					return nil, err
				}
				items[i].UpdatedAt = m.now().UTC()
				updated = items[i]
				return items, nil
			}
		}
		return nil, ErrLicenseNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func keyTaken(items []domain.License, key string) bool {
	for i := range items {
		if items[i].Key == key {
			return true
		}
	}
	return false
}
