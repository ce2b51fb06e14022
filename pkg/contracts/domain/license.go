// Package domain contains the core domain models for the license service.
// These types serve as the Single Source of Truth (SSOT) for all layers of
// the application, including the wire format persisted by the record store.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// License represents a software license bound to an owning identity, with
// optional delegated sub-users and capacity-bounded evidence allow-lists.
type License struct {
	ID                string        `json:"id"`
	Key               string        `json:"key" validate:"required,min=10"`
	ProductID         string        `json:"productId" validate:"required"`
	DiscordID         string        `json:"discordId" validate:"required"`
	DiscordUsername   string        `json:"discordUsername,omitempty"`
	Email             string        `json:"email,omitempty" validate:"omitempty,email"`
	SubUserDiscordIDs []string      `json:"subUserDiscordIds"`
	Status            LicenseStatus `json:"status"`
	ExpiresAt         *time.Time    `json:"expiresAt,omitempty"`
	AllowedIPs        []string      `json:"allowedIps"`
	AllowedHWIDs      []string      `json:"allowedHwids"`
	MaxIPs            Capacity      `json:"maxIps"`
	MaxHWIDs          Capacity      `json:"maxHwids"`
	Validations       int64         `json:"validations"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// LicenseStatus represents the administrative status of a license.
// Status is independent of expiry: both must pass for a license to be
// validatable.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusInactive LicenseStatus = "inactive"
)

// Valid reports whether s is a known status value.
func (s LicenseStatus) Valid() bool {
	return s == LicenseStatusActive || s == LicenseStatusInactive
}

// IsExpired reports whether the license has a past expiry instant.
// A license with no expiry never expires.
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// IsValidatable reports the effective usability predicate: the license must
// be administratively active and not expired. Expired licenses stay readable
// and administrable; they are only barred from validation.
func (l *License) IsValidatable(now time.Time) bool {
	return l.Status == LicenseStatusActive && !l.IsExpired(now)
}

// IsSubUser reports whether identity is a delegated sub-user of the license.
func (l *License) IsSubUser(identity string) bool {
	for _, id := range l.SubUserDiscordIDs {
		if id == identity {
			return true
		}
	}
	return false
}

// IsAuthorized reports whether identity may validate against the license,
// either as the owner or as a delegated sub-user.
func (l *License) IsAuthorized(identity string) bool {
	return identity == l.DiscordID || l.IsSubUser(identity)
}

// CapacityMode distinguishes the three capacity semantics a license may
// carry per evidence kind.
type CapacityMode int

const (
	// CapacityBounded caps the allow-list at Limit distinct values.
	CapacityBounded CapacityMode = iota
	// CapacityUnlimited admits any number of distinct values.
	CapacityUnlimited
	// CapacityUntracked admits like CapacityUnlimited but the license is
	// excluded from aggregate usage totals for that evidence kind.
	CapacityUntracked
)

// Wire sentinels for capacity. The persisted format keeps the integer
// encoding so existing collections stay readable.
const (
	wireUnlimited = -1
	wireUntracked = -2
)

// Capacity is the tagged replacement for the -1/-2 sentinel integers: a
// capacity is Unlimited, Untracked, or Bounded at a non-negative limit.
type Capacity struct {
	Mode  CapacityMode
	Limit int
}

// Bounded returns a capacity capped at n distinct values.
func Bounded(n int) Capacity { return Capacity{Mode: CapacityBounded, Limit: n} }

// Unlimited returns a capacity that never rejects.
func Unlimited() Capacity { return Capacity{Mode: CapacityUnlimited} }

// Untracked returns a capacity that never rejects and is excluded from
// aggregate usage reporting.
func Untracked() Capacity { return Capacity{Mode: CapacityUntracked} }

// CapacityFromWire converts the integer wire encoding into a Capacity.
func CapacityFromWire(n int) (Capacity, error) {
	switch {
	case n == wireUnlimited:
		return Unlimited(), nil
	case n == wireUntracked:
		return Untracked(), nil
	case n >= 0:
		return Bounded(n), nil
	default:
		return Capacity{}, fmt.Errorf("invalid capacity value %d", n)
	}
}

// Wire returns the integer wire encoding of the capacity.
func (c Capacity) Wire() int {
	switch c.Mode {
	case CapacityUnlimited:
		return wireUnlimited
	case CapacityUntracked:
		return wireUntracked
	default:
		return c.Limit
	}
}

// Tracked reports whether the capacity participates in usage totals.
func (c Capacity) Tracked() bool { return c.Mode != CapacityUntracked }

// MarshalJSON encodes the capacity as its integer wire value.
func (c Capacity) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Wire())
}

// UnmarshalJSON decodes the integer wire value into a tagged capacity.
func (c *Capacity) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	parsed, err := CapacityFromWire(n)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String renders the capacity for logs and error messages.
func (c Capacity) String() string {
	switch c.Mode {
	case CapacityUnlimited:
		return "unlimited"
	case CapacityUntracked:
		return "untracked"
	default:
		return fmt.Sprintf("%d", c.Limit)
	}
}
