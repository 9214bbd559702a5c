// Package resmgr is the MQTT bridge to the external resource manager.
//
// The resource manager is the policy authority that asks for explicit
// connections. It publishes requests on graylogic/audio/resmgr/request:
//
//	{"op": "connect", "handle": 12, "connection_id": 3, "source_id": 7, "sink_id": 2}
//	{"op": "disconnect", "handle": 13, "connection_id": 3}
//
// Each request is answered on graylogic/audio/resmgr/ack/{handle} with a
// status code, and every routing pass that changes the default routes
// publishes the change set on graylogic/audio/resmgr/routes.
//
// Requests arrive on MQTT goroutines and are handed to the main loop;
// acknowledgements and route batches leave through an mqtt.Outbox so the
// loop never waits on the broker.
package resmgr
