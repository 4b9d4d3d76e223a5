// Package identity canonicalises locators into comparable identity keys and
// fingerprints mutable content.
//
// Every function here is pure and total: malformed input degrades to a
// best-effort key instead of an error. Equality of two records' keys is the
// sole basis for "same resource" throughout shelfsync.
package identity
