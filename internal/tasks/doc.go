// Package tasks builds and refreshes hashtag albums with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.CreateAlbum] : New album from a single search
//     - Searches for the tag with no cursor
//     - Flattens media of every status into items, dropping repeats within the batch
//     - Keeps the first MaxItems in source order, then orders them newest-first
//     - Optionally downloads media, then stores album and items in one transaction
//
//  2. [SyncEngine.UpdateAlbum] : Refresh an existing album
//     - Searches with the album's largest stored external id as the cursor
//     - Merges candidates that are not the same media as any existing item
//     - Splits the merged list at the cap into items to create and items to delete
//     - Optionally downloads media for the created items, then applies both sets in one transaction
//
//  3. [SyncEngine.DeleteAlbum] : Remove an album with its items and stored media
//
// # Sync Outcomes
//
// [shared.ErrNoResults] and [shared.ErrNoChange] are reportable outcomes, not faults. Callers should check them with
// [shared.IsRecoverable]. Errors from the search service and the media fetcher are returned untranslated.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Media
//
// [MediaFetcher] downloads on a bounded errgroup pool. The first failure cancels the remaining downloads.
// [DirStore] writes each download to a temporary file and renames it into place once complete.
// Media downloaded by a failed operation, and media of items dropped past the cap, is removed from the store.
package tasks
