// Package domain defines the core retrospective types and the wire message envelope.
//
// Cards and retros are immutable values: every mutation builds a new value that the
// store swaps in atomically. Interfaces consumed by the app layer (Publisher,
// SnapshotStore) live here to keep imports pointing inward.
package domain
