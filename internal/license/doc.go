// Package license implements the license validation and allocation engine:
// capacity-bounded evidence admission, the global blacklist gate, license
// lifecycle transitions, and the audit trail every attempt leaves behind.
//
// All mutations of the license collection flow through the record store's
// Transform primitive, which serializes the full read-modify-write sequence
// per collection. That is what closes the lost-update race between
// concurrent validations against the same license.
package license
