// Package fingerprint computes content-addressed identities for training runs.
//
// A run's fingerprint is the SHA-256 of its configuration in canonical JSON,
// prefixed by a versioned domain string and a NUL separator. The ledger uses
// fingerprints to recognise runs that were already submitted.
package fingerprint
