package meter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"smart_switch/internal/logger"
	"smart_switch/internal/repository"
)

// RegisterReader is the part of Client the poller needs.
type RegisterReader interface {
	Connect() error
	ReadInputRegisters(address, quantity uint16) ([]uint16, error)
	Reconnect() error
}

// Poller reads the meter on a fixed interval and writes voltage, current,
// power and energy into the store, where the controller picks them up as
// ordinary sensor updates.
type Poller struct {
	reader   RegisterReader
	store    repository.KVStore
	interval time.Duration
	log      *logger.Logger
}

func NewPoller(reader RegisterReader, store repository.KVStore, interval time.Duration, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{reader: reader, store: store, interval: interval, log: log}
}

// Run polls until ctx is done. Read failures are logged and retried on the
// next tick.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Infow("meter_poller_started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Warnw("meter_poll_failed", "err", err)
		}
		select {
		case <-ctx.Done():
			p.log.Infow("meter_poller_stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Read takes one reading, reconnecting once if the read fails.
func Read(reader RegisterReader) (Reading, error) {
	if err := reader.Connect(); err != nil {
		return Reading{}, err
	}
	regs, err := reader.ReadInputRegisters(regStart, regCount)
	if err != nil {
		if rerr := reader.Reconnect(); rerr != nil {
			return Reading{}, errors.Join(err, rerr)
		}
		if regs, err = reader.ReadInputRegisters(regStart, regCount); err != nil {
			return Reading{}, fmt.Errorf("read after reconnect: %w", err)
		}
	}
	return Decode(regs)
}

// Poll takes one reading and stores it.
func (p *Poller) Poll(ctx context.Context) (Reading, error) {
	r, err := Read(p.reader)
	if err != nil {
		return Reading{}, err
	}

	values := []struct {
		key string
		v   float64
	}{
		{"voltage", r.Voltage},
		{"current", r.Current},
		{"power", r.Power},
		{"energy", r.EnergyKWh()},
	}
	for _, kv := range values {
		if err := p.store.Set(ctx, kv.key, number(kv.v)); err != nil {
			return r, fmt.Errorf("store %s: %w", kv.key, err)
		}
	}
	p.log.Debugw("meter_reading", "voltage", r.Voltage, "current", r.Current, "power", r.Power,
		"frequency", r.Frequency, "power_factor", r.PowerFactor)
	return r, nil
}

func number(v float64) json.RawMessage {
	return json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
}
