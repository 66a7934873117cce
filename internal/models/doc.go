// Package models holds the data types shared across the service layers.
//
// [Snapshot] is the transient normalized now-playing state served to polling
// clients and the watch TUI. [Play] is the persisted playback-history entry
// recorded whenever the observed track changes.
//
// The [Repository] interface abstracts persistence so the history package can
// be swapped out in tests.
package models
