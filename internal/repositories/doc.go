// Package repositories implements SQLite persistence for albums and their items.
//
// [AlbumRepository] is the store behind the sync engine. Every write that touches more than one row runs in a single
// transaction: an album is created together with all of its items, and a refresh inserts new items and deletes the
// items that fell outside the album cap together. A failure leaves the database as it was.
//
// Items are always read newest-first by external id.
//
// Sequence numbers provide stable, human-readable album references (e.g., album #15) independent of UUIDs.
// They are allocated inside the creating transaction from a dedicated sequence table.
package repositories
