// Package models defines the domain entities for hashtag albums.
//
// An [Album] is a capped collection of [Item] values built from the image-bearing statuses returned by a hashtag search.
// Items are kept newest-first by their upstream status id, and an album never holds more than [MaxItems] of them.
//
// Items have no single identity key. Two items are the same media when any of their three URLs match, see [Item.Same].
// The relation is not transitive, so deduplication always compares pairwise instead of going through a set or map.
package models
