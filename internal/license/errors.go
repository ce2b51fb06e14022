package license

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle and engine operations. The services layer
// maps these onto the HTTP error taxonomy; inside this package they are
// matched with errors.Is.
var (
	ErrLicenseNotFound  = errors.New("license not found")
	ErrProductNotFound  = errors.New("referenced product not found")
	ErrInvalidStatus    = errors.New("invalid license status")
	ErrInvalidExpiry    = errors.New("invalid expiry instant")
	ErrOwnerSubUser     = errors.New("owner identity cannot be a sub-user")
	ErrDuplicateSubUser = errors.New("sub-user already present")
	ErrSubUserNotFound  = errors.New("sub-user not present")
	ErrNoEvidence       = errors.New("no ip or hwid supplied")
	ErrKeyExhausted     = errors.New("could not generate a unique license key")
)

// CapacityError reports a capacity-policy rejection for one evidence kind.
// It is a conflict, not a silent drop.
type CapacityError struct {
	Kind EvidenceKind
	Max  string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s capacity exhausted (max %s)", e.Kind, e.Max)
}

// IsCapacityError reports whether err is a capacity rejection, returning
// the rejected evidence kind.
func IsCapacityError(err error) (EvidenceKind, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
