// Package status provides the canonical account status values.
//
// Accounts are never removed; deactivation flips status to Disabled and the
// identity verifier refuses tokens for disabled accounts. The constants are
// plain strings for compatibility with MongoDB queries.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid returns true if s is a recognized status value.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}

// Default returns the status assigned to newly created accounts.
func Default() string {
	return Active
}
