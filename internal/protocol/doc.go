// Package protocol owns the SMP wire contract and its error taxonomy.
//
// Ownership boundary:
// - frame: 8-byte header and datagram packing
// - payload: CBOR body codec and tagged values
// - catalog: management groups, command ids, call descriptors
// - schema: per-command request/response shapes
// - session: one UDP endpoint, sequence correlation, timeouts
//
// Every failure surfaced by these packages matches one of the sentinel
// errors in this package via errors.Is.
package protocol
