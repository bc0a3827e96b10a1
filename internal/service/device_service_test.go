package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart_switch/internal/models"
)

func TestDeviceService_ListAndSet(t *testing.T) {
	h := newHarness(t, testConfig(), map[string]any{
		"devices/fan":  map[string]any{"name": "Fan", "type": "fan", "status": "off"},
		"devices/lamp": map[string]any{"name": "Lamp", "status": true},
	})
	svc := NewDeviceService(h.store, h.ctl, 0)

	list, err := svc.ListDevices(h.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Fan", list[0].Name)
	assert.Equal(t, models.StatusOn, list[1].Status)

	d, err := svc.SetDeviceStatus(h.ctx, "fan", true)
	require.NoError(t, err)
	assert.True(t, d.IsOn())

	raw, err := h.store.Get(h.ctx, deviceKey("fan"))
	require.NoError(t, err)
	stored, err := decodeDevice("fan", raw)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOn, stored.Status)
	assert.Equal(t, "fan", stored.Type)

	_, err = svc.SetDeviceStatus(h.ctx, "ghost", true)
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeviceService_EmergencyRefusesOn(t *testing.T) {
	h := newHarness(t, testConfig(), map[string]any{
		"devices/fan": map[string]any{"name": "Fan", "status": "on"},
	})
	svc := NewDeviceService(h.store, h.ctl, 0)
	_, err := h.ctl.EmergencyShutdown(h.ctx)
	require.NoError(t, err)

	_, err = svc.SetDeviceStatus(h.ctx, "fan", true)
	require.ErrorIs(t, err, ErrEmergencyActive)
	_, err = svc.SetAllDevices(h.ctx, true)
	require.ErrorIs(t, err, ErrEmergencyActive)

	_, err = svc.SetDeviceStatus(h.ctx, "fan", false)
	require.NoError(t, err)
}

func TestDeviceService_SetAllPartial(t *testing.T) {
	h := newHarness(t, testConfig(), map[string]any{
		"devices/a": map[string]any{"name": "A", "status": "off"},
		"devices/b": map[string]any{"name": "B", "status": "off"},
		"devices/c": map[string]any{"name": "C", "status": "off"},
	})
	h.store.failKey(deviceStatusKey("b"), errors.New("no ack"))
	svc := NewDeviceService(h.store, h.ctl, 0)

	report, err := svc.SetAllDevices(h.ctx, true)
	require.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, models.FanOutPartial, report.Outcome)
	assert.Equal(t, []string{deviceStatusKey("a"), deviceStatusKey("c")}, report.Succeeded)
	assert.Equal(t, map[string]string{deviceStatusKey("b"): "no ack"}, report.Failed)
}

func TestDeviceService_SetAllComplete(t *testing.T) {
	h := newHarness(t, testConfig(), map[string]any{
		"devices/a": map[string]any{"name": "A", "status": "on"},
	})
	svc := NewDeviceService(h.store, h.ctl, 0)

	report, err := svc.SetAllDevices(h.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, models.FanOutComplete, report.Outcome)
	assert.Empty(t, report.Failed)
}
