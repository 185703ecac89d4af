// Package storage defines the durable key/value contract that persisted stores
// write their records to, plus a small in-memory implementation.
//
// Responsibilities:
//   - Storage only reads, writes and removes a single string value per key.
//   - Keys are derived from store identifiers with Key(id), producing
//     `simp-store:<id>`. StoreID reverses the mapping for inspectors.
//   - Listing is optional; backends that can enumerate keys implement Lister.
//
// Backends live in subpackages (bolt, sqlite, redis, s3) and the traced
// package decorates any Storage with OpenTelemetry spans. The root simpstore
// package only depends on this contract.
package storage
