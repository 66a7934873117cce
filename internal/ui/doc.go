// Package ui implements the watch terminal interface using bubbletea's Elm architecture.
//
// The [Model] renders now-playing snapshots delivered by a [poll.Poller]
// channel: track metadata, a [progress.Model] bar tracking playback position,
// and transient errors from failed polls. Quitting the TUI cancels the
// poller's context upstream, which closes the channel and ends the program.
package ui
