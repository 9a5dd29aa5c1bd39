// Package payload encodes and decodes SMP message bodies.
//
// A body is a CBOR map with text keys. Values are restricted to integers
// that fit in int64, text strings, booleans, byte strings, maps and lists;
// anything else a device sends is reported as malformed.
package payload
