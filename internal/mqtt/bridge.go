package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
	"smart_switch/internal/repository"
)

const (
	keyRelay      = "relay"
	prefixDevices = "devices"

	statusOnline  = "online"
	statusOffline = "offline"

	inboundBuffer = 64
)

var sensorTopics = []string{"voltage", "current", "power", "temperature", "energy"}

// StatusTopic is where the bridge announces itself; the broker publishes
// "offline" there when the connection drops.
func StatusTopic(prefix string) string { return prefix + "/bridge/status" }

// Bridge copies device telemetry into the store and forwards relay and
// outlet writes back to the device. It also publishes controller alerts.
type Bridge struct {
	conn   Conn
	store  repository.KVStore
	prefix string
	log    *logger.Logger

	// reported holds the last value the device sent per target so the
	// store's echo of that write is not sent back as a command.
	mu       sync.Mutex
	reported map[string]string
}

type inbound struct {
	key    string
	target string
	status string
	value  json.RawMessage
}

func NewBridge(conn Conn, store repository.KVStore, prefix string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	return &Bridge{
		conn:     conn,
		store:    store,
		prefix:   strings.TrimSuffix(prefix, "/"),
		log:      log,
		reported: make(map[string]string),
	}
}

func (b *Bridge) topic(parts ...string) string {
	return b.prefix + "/" + strings.Join(parts, "/")
}

// Run subscribes to the device topics and the store until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	relayCh, err := b.store.Subscribe(ctx, keyRelay)
	if err != nil {
		return fmt.Errorf("watch relay: %w", err)
	}
	devCh, err := b.store.Subscribe(ctx, prefixDevices)
	if err != nil {
		return fmt.Errorf("watch devices: %w", err)
	}

	in := make(chan inbound, inboundBuffer)
	if err := b.subscribe(ctx, in); err != nil {
		return err
	}

	b.publish(StatusTopic(b.prefix), 1, true, []byte(statusOnline))
	b.syncRelay(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-in:
			b.write(ctx, m)
		case ch, ok := <-relayCh:
			if !ok {
				return nil
			}
			b.forwardRelay(ch)
		case ch, ok := <-devCh:
			if !ok {
				return nil
			}
			b.forwardDevice(ch)
		}
	}
}

func (b *Bridge) subscribe(ctx context.Context, in chan<- inbound) error {
	send := func(m inbound) {
		select {
		case in <- m:
		case <-ctx.Done():
		}
	}

	for _, name := range sensorTopics {
		key := name
		err := b.conn.Subscribe(b.topic(name), 0, func(topic string, payload []byte) {
			v, ok := parseNumber(payload)
			if !ok {
				b.log.Warnw("mqtt_payload_invalid", "topic", topic, "payload", string(payload))
				return
			}
			send(inbound{key: key, value: v})
		})
		if err != nil {
			return err
		}
	}

	err := b.conn.Subscribe(b.topic("relay", "state"), 1, func(topic string, payload []byte) {
		on, ok := parseSwitch(payload)
		if !ok {
			b.log.Warnw("mqtt_payload_invalid", "topic", topic, "payload", string(payload))
			return
		}
		status := models.StatusString(on)
		send(inbound{key: keyRelay, target: keyRelay, status: status, value: quote(status)})
	})
	if err != nil {
		return err
	}

	return b.conn.Subscribe(b.topic(prefixDevices, "+", "state"), 1, func(topic string, payload []byte) {
		id := deviceFromTopic(b.prefix, topic)
		on, ok := parseSwitch(payload)
		if id == "" || !ok {
			b.log.Warnw("mqtt_payload_invalid", "topic", topic, "payload", string(payload))
			return
		}
		status := models.StatusString(on)
		target := prefixDevices + "/" + id
		send(inbound{key: target + "/status", target: target, status: status, value: quote(status)})
	})
}

func (b *Bridge) write(ctx context.Context, m inbound) {
	if m.target != "" {
		b.mu.Lock()
		b.reported[m.target] = m.status
		b.mu.Unlock()
	}
	if err := b.store.Set(ctx, m.key, m.value); err != nil {
		b.log.Warnw("mqtt_store_write_failed", "key", m.key, "err", err)
		if m.target != "" {
			b.mu.Lock()
			delete(b.reported, m.target)
			b.mu.Unlock()
		}
	}
}

// echo reports whether status is the store's copy of a device report, and
// forgets the report either way.
func (b *Bridge) echo(target, status string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.reported[target]
	delete(b.reported, target)
	return ok && prev == status
}

func (b *Bridge) syncRelay(ctx context.Context) {
	raw, err := b.store.Get(ctx, keyRelay)
	if err != nil {
		b.log.Warnw("mqtt_relay_read_failed", "err", err)
		return
	}
	if on, ok := parseSwitch(raw); ok && raw != nil {
		b.publish(b.topic("relay", "set"), 1, true, []byte(models.StatusString(on)))
	}
}

func (b *Bridge) forwardRelay(ch repository.Change) {
	if ch.Key != keyRelay || ch.Value == nil {
		return
	}
	on, ok := parseSwitch(ch.Value)
	if !ok {
		return
	}
	status := models.StatusString(on)
	if b.echo(keyRelay, status) {
		return
	}
	b.publish(b.topic("relay", "set"), 1, true, []byte(status))
}

func (b *Bridge) forwardDevice(ch repository.Change) {
	id, ok := strings.CutPrefix(ch.Key, prefixDevices+"/")
	if !ok || id == "" || strings.Contains(id, "/") || ch.Value == nil {
		return
	}
	var d models.Device
	if err := json.Unmarshal(ch.Value, &d); err != nil || d.Status == "" {
		return
	}
	if b.echo(ch.Key, d.Status) {
		return
	}
	b.publish(b.topic(prefixDevices, id, "set"), 1, false, []byte(d.Status))
}

// Notify publishes the notification as JSON on <prefix>/alerts.
func (b *Bridge) Notify(_ context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("format alert: %w", err)
	}
	return b.conn.Publish(b.topic("alerts"), 1, false, payload)
}

// Close announces the bridge offline and disconnects.
func (b *Bridge) Close() error {
	b.publish(StatusTopic(b.prefix), 1, true, []byte(statusOffline))
	return b.conn.Close()
}

func (b *Bridge) publish(topic string, qos byte, retained bool, payload []byte) {
	if err := b.conn.Publish(topic, qos, retained, payload); err != nil {
		b.log.Warnw("mqtt_publish_failed", "topic", topic, "err", err)
	}
}

func deviceFromTopic(prefix, topic string) string {
	rest, ok := strings.CutPrefix(topic, prefix+"/"+prefixDevices+"/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// parseNumber accepts plain numeric text or a JSON number/string.
func parseNumber(payload []byte) (json.RawMessage, bool) {
	s := strings.TrimSpace(string(payload))
	if uq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(uq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64)), true
}

// parseSwitch accepts on/off, true/false and 1/0, bare or JSON-quoted.
func parseSwitch(payload []byte) (bool, bool) {
	s := strings.TrimSpace(string(payload))
	if uq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(uq)
	}
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

func quote(s string) json.RawMessage {
	return json.RawMessage(strconv.Quote(s))
}
