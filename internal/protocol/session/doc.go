// Package session owns the UDP exchange with one SMP device.
//
// Ownership boundary:
// - socket lifetime (Open/New ... Close)
// - sequence allocation, one per Call
// - header stamping, reply correlation and framing checks
//
// A Session runs one Call at a time and holds no lock; callers sharing a
// Session serialize access themselves. Retries live above this package.
package session
