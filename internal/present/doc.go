// Package present keeps audience displays in step with a presenter.
//
// A [Presenter] owns the [models.PresentationState] for one song: it loads and parses the song,
// clamps navigation and publishes every change on a [Channel]. An [Audience] consumes the same
// channel and always has something safe to render, either the current slide or a placeholder.
//
// The channel is transport agnostic. Three transports are provided:
//
//   - [BroadcastTransport]: in-process publish/subscribe. Ordered, fire-and-forget, no replay.
//   - [StoreTransport]: writes the full state into a [StateStore] slot and notifies watchers.
//     Late subscribers read the slot first. Stores exist for memory, a shared directory
//     ([FileStore]) and SQLite ([SQLStore]).
//   - [HandshakeTransport]: connected peers (websockets in production) only receive pushes after
//     they announce "ready", and the ready announcement is answered with the full current state.
package present
