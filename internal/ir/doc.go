// Package ir holds the small set of value types shared by every layer of the
// fake Sonic Pi runner: the virtual-time Beat, canonical JSON used for golden
// traces and exports, and content digests over that JSON.
//
// # Canonical JSON
//
// Traces are compared byte-for-byte (golden files, determinism checks, SQLite
// export digests), so every serialization that crosses a package boundary
// goes through MarshalCanonical:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, no HTML escaping
//   - integral numbers printed without a fraction, other finite floats in
//     their shortest decimal form
//   - NaN and infinities rejected
package ir
