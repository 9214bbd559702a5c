package host

import (
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/mqtt"
)

// Enqueuer is the part of mqtt.Outbox the MQTT sink needs.
type Enqueuer interface {
	Enqueue(topic string, v any, retained bool) bool
}

// MQTTSink mirrors graph commands to an audio server bridge.
//
// Commands are queued on an outbox and published off the main loop, on
// graylogic/audio/host/{bridge}/command/{op}.
type MQTTSink struct {
	out    Enqueuer
	bridge string
	now    func() time.Time
}

// NewMQTTSink creates a sink publishing through out for the named bridge.
func NewMQTTSink(out Enqueuer, bridgeID string) *MQTTSink {
	return &MQTTSink{out: out, bridge: bridgeID, now: time.Now}
}

// Command implements CommandSink.
func (s *MQTTSink) Command(op string, args map[string]any) {
	msg := make(map[string]any, len(args)+2)
	for k, v := range args {
		msg[k] = v
	}
	msg["op"] = op
	msg["ts"] = s.now().UTC().Format(time.RFC3339Nano)
	s.out.Enqueue(mqtt.Topics{}.HostCommand(s.bridge, op), msg, false)
}
