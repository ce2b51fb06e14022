package domain

import "time"

// ValidationOutcome is the binary outcome recorded for every validation
// attempt.
type ValidationOutcome string

const (
	OutcomeSuccess ValidationOutcome = "success"
	OutcomeFailure ValidationOutcome = "failure"
)

// Reason is the stable machine-readable reason taxonomy recorded in the
// audit log. HTTP status codes are a presentation detail; these codes are
// the durable record.
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonNotFound     Reason = "not_found"
	ReasonBlacklisted  Reason = "blacklisted"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonExpired      Reason = "expired"
	ReasonInactive     Reason = "inactive"
	ReasonIPCapacity   Reason = "ip_capacity"
	ReasonHWIDCapacity Reason = "hwid_capacity"
)

// AuditEvent names the operation an audit entry records. Every validation
// attempt and every administrative mutation produces exactly one entry.
type AuditEvent string

const (
	EventValidation    AuditEvent = "validation"
	EventIssue         AuditEvent = "issue"
	EventRenew         AuditEvent = "renew"
	EventStatusChange  AuditEvent = "status_change"
	EventSubUserAdd    AuditEvent = "sub_user_add"
	EventSubUserRemove AuditEvent = "sub_user_remove"
	EventIdentityPatch AuditEvent = "identity_patch"
	EventDelete        AuditEvent = "delete"
)

// ValidationLog is an append-only audit record of one validation attempt or
// administrative event. Entries are never mutated after creation.
type ValidationLog struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Event      AuditEvent        `json:"event"`
	LicenseKey string            `json:"licenseKey"`
	Identity   string            `json:"identity,omitempty"`
	Outcome    ValidationOutcome `json:"outcome"`
	Reason     Reason            `json:"reason"`
	IP         string            `json:"ip,omitempty"`
	HWID       string            `json:"hwid,omitempty"`
	Country    string            `json:"country,omitempty"`
}

// AdmissionOutcome is the per-evidence-kind result of the capacity policy.
type AdmissionOutcome string

const (
	// Admitted means the candidate was appended to the allow-list.
	Admitted AdmissionOutcome = "admitted"
	// AlreadyPresent means the candidate was in the allow-list; treated as
	// success with no mutation.
	AlreadyPresent AdmissionOutcome = "already_present"
	// Rejected means the allow-list is at capacity; a conflict, not a
	// silent drop.
	Rejected AdmissionOutcome = "rejected"
	// NotSupplied means the request carried no candidate of this kind.
	NotSupplied AdmissionOutcome = "not_supplied"
)
