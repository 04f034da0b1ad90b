// Package identity owns user records: registration-time creation and credential lookup.
//
// Emails are stored as given (trimmed, case-sensitive) and are unique; the unique constraint is
// the only uniqueness check, so concurrent registrations cannot both succeed.
package identity
