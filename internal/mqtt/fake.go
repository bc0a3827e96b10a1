package mqtt

import "sync"

// Message is a publish recorded by FakeConn.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeConn records publishes and lets tests deliver inbound messages.
type FakeConn struct {
	mu sync.Mutex

	// Published contains every message passed to Publish.
	Published []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	subs *subscriptions
}

// NewFakeConn creates a FakeConn for testing.
func NewFakeConn() *FakeConn {
	return &FakeConn{subs: newSubscriptions(), Connected: true}
}

func (f *FakeConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Message{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  append([]byte(nil), payload...),
	})
	return nil
}

func (f *FakeConn) Subscribe(filter string, qos byte, h Handler) error {
	f.subs.add(filter, qos, h)
	return nil
}

// Deliver hands payload to every handler whose filter matches topic.
func (f *FakeConn) Deliver(topic string, payload []byte) {
	for filter, s := range f.subs.snapshot() {
		if matchTopic(filter, topic) {
			s.handler(topic, payload)
		}
	}
}

// Messages returns a copy of the publishes recorded so far.
func (f *FakeConn) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Published...)
}

// Filters returns the subscribed topic filters.
func (f *FakeConn) Filters() []string {
	var out []string
	for filter := range f.subs.snapshot() {
		out = append(out, filter)
	}
	return out
}

func (f *FakeConn) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeConn) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}
