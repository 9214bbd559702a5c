// Package history records routing decisions in SQLite.
//
// Every default-route change and explicit connect/disconnect produced by a
// routing pass becomes one route_history row; the pass itself becomes a
// routing_passes row. The Recorder receives passes on the routing
// goroutine and writes them from a goroutine of its own, so the main loop
// never waits on the database.
//
// The SQLiteRepository serves the API's /history endpoint with filtering
// and pagination, and prunes rows past the retention period.
package history
