// Package sanitizer normalizes user-supplied booking and account input before
// validation and storage.
//
// All functions are idempotent. Input that cannot be normalized is returned
// trimmed but otherwise unchanged so validators can report it.
package sanitizer
