// Package models defines domain entities and persistence interfaces for songdeck.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs exchanged with the catalog, parser and channel
//   - [Song], [Catalog] : catalog entries and the index that lists them
//   - [Slide], [Deck] : parsed document content
//   - [PresentationState], [Envelope] : the snapshot a presenter publishes and its wire wrapper
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [User] : accounts identified by email
//   - [SavedSong] : favorites, unique per user and song key
//   - [DailySong] : ordered set list entries for a day
//   - [SongDocument] : cached chord-sheet HTML
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
