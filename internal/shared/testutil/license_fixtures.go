// Package testutil provides fixtures and log-capture helpers shared by
// tests across packages.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"licensor/pkg/contracts/domain"
)

// FixtureNow is the pinned clock all fixtures are built against, so
// expiry-relative fixtures stay deterministic.
var FixtureNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ValidLicense returns an active, unexpired license with tracked caps.
func ValidLicense(key string) domain.License {
	expiry := FixtureNow.Add(30 * 24 * time.Hour)
	return domain.License{
		ID:        uuid.New().String(),
		Key:       key,
		ProductID: "prod-1",
		DiscordID: "100200300",
		Status:    domain.LicenseStatusActive,
		ExpiresAt: &expiry,
		MaxIPs:    domain.Bounded(3),
		MaxHWIDs:  domain.Bounded(1),
		CreatedAt: FixtureNow.Add(-24 * time.Hour),
		UpdatedAt: FixtureNow.Add(-24 * time.Hour),
	}
}

// ExpiredLicense returns a license whose expiry instant has passed but
// whose status is still active.
func ExpiredLicense(key string) domain.License {
	lic := ValidLicense(key)
	expiry := FixtureNow.Add(-10 * 24 * time.Hour)
	lic.ExpiresAt = &expiry
	return lic
}

// InactiveLicense returns an unexpired license that has been switched off
// administratively.
func InactiveLicense(key string) domain.License {
	lic := ValidLicense(key)
	lic.Status = domain.LicenseStatusInactive
	return lic
}

// PerpetualLicense returns a license with no expiry and unlimited IP cap.
func PerpetualLicense(key string) domain.License {
	lic := ValidLicense(key)
	lic.ExpiresAt = nil
	lic.MaxIPs = domain.Unlimited()
	return lic
}

// ValidationEntry returns one audit log entry for the given license key.
func ValidationEntry(key string, outcome domain.ValidationOutcome, reason domain.Reason) domain.ValidationLog {
	return domain.ValidationLog{
		ID:         uuid.New().String(),
		Timestamp:  FixtureNow,
		Event:      domain.EventValidation,
		LicenseKey: key,
		Identity:   "100200300",
		Outcome:    outcome,
		Reason:     reason,
		IP:         "1.2.3.4",
		Country:    "DE",
	}
}
