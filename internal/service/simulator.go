package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"smart_switch/internal/logger"
	"smart_switch/internal/repository"
)

// ----------- Simulation constants -----------
const (
	SimNominalVoltage = 230.0 // V
	SimVoltageSwing   = 3.0   // ± V around nominal
	SimLoadW          = 1100.0
	SimLoadSwing      = 0.05 // ± fraction of the load
	SimPowerFactor    = 0.95
	SimAmbientC       = 30.0
	SimLoadedC        = 55.0 // enclosure temperature under steady load
	SimHeatCPerSec    = 0.05 // °C per second while loaded
	SimCoolCPerSec    = 0.1  // °C per second drift toward ambient
)

// SimReading is one generated sample.
type SimReading struct {
	Voltage      float64
	Current      float64
	Power        float64
	TemperatureC float64
	EnergyKWh    float64
}

// SimulatorService writes plausible readings into the store when no MQTT or
// meter source is attached. It follows the relay: no current while off, a
// noisy load while on, and an enclosure temperature that warms under load.
type SimulatorService struct {
	store repository.KVStore
	log   *logger.Logger
	loadW float64
	now   func() time.Time
	// jitter returns a value in [-1, 1].
	jitter func() float64

	last      time.Time
	tempC     float64
	energyKWh float64
}

// NewSimulatorService returns a simulator with defaults. loadW <= 0 uses
// SimLoadW.
func NewSimulatorService(store repository.KVStore, loadW float64, log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.Nop()
	}
	if loadW <= 0 {
		loadW = SimLoadW
	}
	return &SimulatorService{
		store:  store,
		log:    log,
		loadW:  loadW,
		now:    time.Now,
		jitter: func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	s.log.Infow("simulator_started", "interval", tick, "load_w", s.loadW)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		if _, err := s.Step(ctx, s.now()); err != nil && ctx.Err() == nil {
			s.log.Warnw("simulator_step_failed", "err", err)
		}
		select {
		case <-ctx.Done():
			s.log.Infow("simulator_stopped")
			return nil
		case <-t.C:
		}
	}
}

// Step advances the simulation to now and writes one reading. The first
// step starts from ambient temperature and the stored energy counter.
func (s *SimulatorService) Step(ctx context.Context, now time.Time) (SimReading, error) {
	relayOn, err := s.relayOn(ctx)
	if err != nil {
		return SimReading{}, err
	}

	var elapsed float64
	if s.last.IsZero() {
		s.tempC = SimAmbientC
		s.energyKWh = s.storedEnergy(ctx)
	} else {
		elapsed = now.Sub(s.last).Seconds()
		if elapsed < 1 {
			// less than 1s → skip until more time passes
			return SimReading{}, nil
		}
		if relayOn {
			s.heat(elapsed)
		} else {
			s.driftToAmbient(elapsed)
		}
	}
	s.last = now

	r := SimReading{
		Voltage:      round(SimNominalVoltage+SimVoltageSwing*s.jitter(), 1),
		TemperatureC: round(s.tempC, 1),
	}
	if relayOn {
		r.Power = round(s.loadW*(1+SimLoadSwing*s.jitter()), 1)
		r.Current = round(r.Power/(r.Voltage*SimPowerFactor), 3)
		s.energyKWh += r.Power * elapsed / 3.6e6
	}
	r.EnergyKWh = round(s.energyKWh, 3)

	for _, kv := range []struct {
		key string
		v   float64
	}{
		{keyVoltage, r.Voltage},
		{keyCurrent, r.Current},
		{keyPower, r.Power},
		{keyTemperature, r.TemperatureC},
		{keyEnergy, r.EnergyKWh},
	} {
		if err := s.store.Set(ctx, kv.key, json.RawMessage(strconv.FormatFloat(kv.v, 'f', -1, 64))); err != nil {
			return r, fmt.Errorf("store %s: %w", kv.key, err)
		}
	}
	return r, nil
}

func (s *SimulatorService) relayOn(ctx context.Context) (bool, error) {
	raw, err := s.store.Get(ctx, keyRelay)
	if err != nil {
		return false, fmt.Errorf("load relay: %w", err)
	}
	if raw == nil {
		return false, nil
	}
	on, _ := decodeSwitch(raw)
	return on, nil
}

func (s *SimulatorService) storedEnergy(ctx context.Context) float64 {
	raw, err := s.store.Get(ctx, keyEnergy)
	if err != nil || raw == nil {
		return 0
	}
	v, _ := decodeFloat(raw)
	return v
}

// driftToAmbient cools toward ambient when the load is off. Returns true if
// the temperature changed.
func (s *SimulatorService) driftToAmbient(elapsed float64) bool {
	if s.tempC > SimAmbientC {
		s.tempC = math.Max(s.tempC-SimCoolCPerSec*elapsed, SimAmbientC)
		return true
	}
	return false
}

// heat warms toward the loaded temperature. Returns true if the temperature
// changed.
func (s *SimulatorService) heat(elapsed float64) bool {
	if s.tempC < SimLoadedC {
		s.tempC = math.Min(s.tempC+SimHeatCPerSec*elapsed, SimLoadedC)
		return true
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
