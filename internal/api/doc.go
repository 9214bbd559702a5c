// Package api implements the HTTP REST API and WebSocket server of the
// audio policy core.
//
// This package provides:
//   - Read endpoints for nodes, routing groups, routes, explicit
//     connections, route history and the audit trail
//   - Mutating endpoints (trigger a routing pass, add or remove an explicit
//     connection) behind JWT bearer authentication, each written to the
//     audit trail asynchronously
//   - A WebSocket hub streaming route.added, route.removed and
//     routing.pass events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Threading
//
// The registry and router belong to the main loop. Handlers never touch
// them directly: every read and every mutation runs through Loop.Call, so
// the HTTP goroutines see a consistent snapshot between routing passes.
//
// # Security
//
// Reads are open; the server binds to localhost by default. Mutations
// require an HS256 bearer token signed with security.jwt.secret. Tokens
// are minted by the home controller, not by this service.
package api
