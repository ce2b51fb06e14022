package license

import "licensor/pkg/contracts/domain"

// Denied is the blacklist gate: a pure predicate over the global deny-list.
// The identity check is unconditional; address and fingerprint checks apply
// only when the request supplies them. A positive result is terminal and
// overrides every other license signal.
func Denied(bl *domain.Blacklist, identity, ip, hwid string) bool {
	if bl == nil {
		return false
	}
	if bl.ContainsIdentity(identity) {
		return true
	}
	if bl.ContainsIP(ip) || bl.ContainsHWID(hwid) {
		return true
	}
	return false
}
