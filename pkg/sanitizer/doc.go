// Package sanitizer normalizes free-form input before validation and storage.
//
// All functions are idempotent and never fail; input that cannot be salvaged
// comes back empty so the validator rejects it.
package sanitizer
