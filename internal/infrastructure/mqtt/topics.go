package mqtt

import "fmt"

// TopicPrefix is the root of every topic the audio policy core uses.
const TopicPrefix = "graylogic/audio"

// Topics provides builders for the audio policy core's MQTT topics.
//
//	graylogic/audio/status/{client_id}              retained online/offline
//	graylogic/audio/resmgr/request                  connect/disconnect in
//	graylogic/audio/resmgr/routes                   default-route batch out
//	graylogic/audio/resmgr/ack/{handle}             per-request status out
//	graylogic/audio/host/{bridge}/command/{op}      graph commands out
//	graylogic/audio/host/{bridge}/event/{kind}      graph events in
type Topics struct{}

// Status returns the retained status topic of one policy core instance.
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, clientID)
}

// ResmgrRequest returns the topic the resource manager sends
// connect/disconnect requests on.
func (Topics) ResmgrRequest() string {
	return TopicPrefix + "/resmgr/request"
}

// ResmgrRoutes returns the topic carrying each pass's default-route batch.
func (Topics) ResmgrRoutes() string {
	return TopicPrefix + "/resmgr/routes"
}

// ResmgrAck returns the acknowledgement topic for one request handle.
//
// Example: graylogic/audio/resmgr/ack/42
func (Topics) ResmgrAck(handle uint32) string {
	return fmt.Sprintf("%s/resmgr/ack/%d", TopicPrefix, handle)
}

// HostCommand returns the topic a graph command is mirrored on.
//
// Example: graylogic/audio/host/pulse/command/move_stream
func (Topics) HostCommand(bridgeID, op string) string {
	return fmt.Sprintf("%s/host/%s/command/%s", TopicPrefix, bridgeID, op)
}

// HostEvent returns the topic an audio server bridge reports one kind of
// graph change on.
//
// Example: graylogic/audio/host/pulse/event/device_added
func (Topics) HostEvent(bridgeID, kind string) string {
	return fmt.Sprintf("%s/host/%s/event/%s", TopicPrefix, bridgeID, kind)
}

// AllHostEvents returns a pattern matching every event of one bridge.
//
// Pattern: graylogic/audio/host/{bridge}/event/+
func (Topics) AllHostEvents(bridgeID string) string {
	return fmt.Sprintf("%s/host/%s/event/+", TopicPrefix, bridgeID)
}

// LastSegment returns the part of topic after its final '/'.
// Event kinds and ack handles are carried there.
func LastSegment(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return topic
}
