// Package id generates unique identifiers for domain entities.
//
// Identifiers are random UUIDv4 values rendered as compact lowercase
// base32 so they can appear in URLs and logs without escaping.
package id
