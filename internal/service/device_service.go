package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smart_switch/internal/models"
	"smart_switch/internal/repository"
)

type emergencyLatch interface {
	Emergency(ctx context.Context) (bool, error)
}

// DeviceService switches individual outlets. Switching ON is refused while
// emergency mode is latched.
type DeviceService struct {
	store   repository.KVStore
	latch   emergencyLatch
	timeout time.Duration
}

func NewDeviceService(store repository.KVStore, latch emergencyLatch, timeout time.Duration) *DeviceService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DeviceService{store: store, latch: latch, timeout: timeout}
}

func (s *DeviceService) ListDevices(ctx context.Context) ([]models.Device, error) {
	recs, err := s.store.List(ctx, prefixDevices)
	if err != nil {
		return nil, err
	}
	out := make([]models.Device, 0, len(recs))
	for id, raw := range recs {
		d, err := decodeDevice(id, raw)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	sortDevices(out)
	return out, nil
}

func (s *DeviceService) SetDeviceStatus(ctx context.Context, id string, on bool) (models.Device, error) {
	raw, err := s.store.Get(ctx, deviceKey(id))
	if err != nil {
		return models.Device{}, err
	}
	if raw == nil {
		return models.Device{}, ErrDeviceNotFound
	}
	d, err := decodeDevice(id, raw)
	if err != nil {
		return models.Device{}, err
	}
	if err := s.checkLatch(ctx, on); err != nil {
		return models.Device{}, err
	}
	if err := s.store.Set(ctx, deviceStatusKey(id), statusJSON(on)); err != nil {
		return models.Device{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	d.Status = models.StatusString(on)
	return d, nil
}

// SetAllDevices switches every device at once. ErrPartialWrite comes back
// with the report when any device failed.
func (s *DeviceService) SetAllDevices(ctx context.Context, on bool) (models.FanOutReport, error) {
	if err := s.checkLatch(ctx, on); err != nil {
		return models.FanOutReport{}, err
	}
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return models.FanOutReport{}, err
	}
	targets := make(map[string]json.RawMessage, len(devices))
	for _, d := range devices {
		targets[deviceStatusKey(d.ID)] = statusJSON(on)
	}

	started := time.Now()
	report := fanOut(ctx, s.store, targets, s.timeout)
	report.StartedAt = started
	report.FinishedAt = time.Now()
	if report.Outcome != models.FanOutComplete {
		return report, ErrPartialWrite
	}
	return report, nil
}

func (s *DeviceService) checkLatch(ctx context.Context, on bool) error {
	if !on || s.latch == nil {
		return nil
	}
	active, err := s.latch.Emergency(ctx)
	if err != nil {
		return err
	}
	if active {
		return ErrEmergencyActive
	}
	return nil
}
