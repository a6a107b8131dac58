// Package server provides HTTP routing, middleware and the handlers of the presentation web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a gorilla/mux router internally with method filtering, so routes
// may carry path variables such as /ws/{channel}.
//
// # Presentation Service
//
// [Server] wires the catalog, the document store and a single server-side presenter behind a JSON API:
//
//   - /api/catalog, /api/songs/{key}/slides and /api/songs/{key}/document read the catalog
//   - /api/present/* drives the presenter; every response carries its status, channel key and state
//   - /ws/{channel} attaches websocket audiences to the handshake transport
//   - /api/state/{channel} returns the last stored message for audiences that poll
//   - /api/users/{email}/saved and /api/daily/{date} manage saved songs and daily set lists
//
// Domain errors are mapped to status codes in one place: unknown songs and documents are 404,
// superseded selections and navigation before a song is ready are 409, a document without
// slides is 422 and a channel held by another presenter is 423.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
