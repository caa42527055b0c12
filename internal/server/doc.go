// Package server exposes the engine over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with per-method dispatch.
//
// # Middleware
//
//   - [Recover] : turns panics into 500 responses
//   - [RequestID] : assigns X-Request-ID (uuid) and stores it in the request context
//   - [Logging] : one structured log line per request
//
// # Routes
//
//	POST /api/requests → [RequestHandler]
//	GET  /health       → [HealthHandler]
//
// A request body is a JSON [tasks.Request]:
//
//	{"kind": "search", "user_id": 42, "query": "daft punk"}
//	{"kind": "select", "user_id": 42, "token": "dl:Daft Punk|One More Time"}
//
// Download selections answer with the audio file itself and put any promotion in the
// X-Promotion trailer. All other requests answer with the JSON [tasks.Response] plus an
// "error" field; [StatusFor] picks the status code.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
