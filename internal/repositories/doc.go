// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// User, saved and daily repositories soft delete via deleted_at timestamps and exclude deleted records from queries by default.
// Cached documents and state slots are overwritten in place.
//
// Key Implementations:
//   - [UserRepository] : User account persistence with email-based lookups
//   - [SavedSongRepository] : A user's saved songs, one live entry per song key
//   - [DailySongRepository] : The ordered set list for a day, replaced atomically
//   - [DocumentRepository] : Cached song documents, exposed to services through [DocumentCacheAdapter]
//   - [StateRepository] : Latest presentation payload per channel, versioned for polling audiences
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, saved song #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
