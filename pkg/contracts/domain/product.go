package domain

import "time"

// Product is an external-collaborator entity: licenses reference a product
// by id, and issuance validates that reference. Only the id→name lookup is
// owned here.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Settings is the external settings record supplying the shared-secret
// admin credential and feature toggles consumed at startup.
type Settings struct {
	AdminSecret     string `json:"adminSecret"`
	AdminAPIEnabled bool   `json:"adminApiEnabled"`
}
