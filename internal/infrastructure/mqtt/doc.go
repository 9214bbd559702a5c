// Package mqtt provides MQTT client connectivity for the audio policy core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT links the policy core to the external resource manager, which asks
// for explicit connections and listens for default routes, and to the
// audio server bridge that owns the real mixing graph:
//
//	Resource manager ↔ Broker ↔ Policy core ↔ Broker ↔ Audio server bridge
//
// See Topics for the topic layout.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.ResmgrRequest(), 1,
//	    func(topic string, payload []byte) error {
//	        loop.Post(func() { handle(payload) })
//	        return nil
//	    })
package mqtt
