// Package mqtt bridges the ESP32 switch to the realtime store over an MQTT
// broker.
package mqtt

import (
	"strings"
	"sync"
)

// Handler receives a message delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Conn is the broker connection used by the bridge.
type Conn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(filter string, qos byte, h Handler) error
	Close() error
}

// matchTopic reports whether topic matches an MQTT filter with + and #
// wildcards.
func matchTopic(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}

type subscription struct {
	qos     byte
	handler Handler
}

// subscriptions remembers active filters so they can be replayed on
// reconnect.
type subscriptions struct {
	mu sync.Mutex
	m  map[string]subscription
}

func newSubscriptions() *subscriptions {
	return &subscriptions{m: make(map[string]subscription)}
}

func (s *subscriptions) add(filter string, qos byte, h Handler) {
	s.mu.Lock()
	s.m[filter] = subscription{qos: qos, handler: h}
	s.mu.Unlock()
}

func (s *subscriptions) snapshot() map[string]subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]subscription, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
