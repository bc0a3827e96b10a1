package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"smart_switch/internal/models"
)

const (
	keyVoltage     = "voltage"
	keyCurrent     = "current"
	keyPower       = "power"
	keyTemperature = "temperature"
	keyEnergy      = "energy"
	keyRelay       = "relay"
	prefixTimers   = "timers"
	prefixDevices  = "devices"
)

var sensorKeys = []string{keyVoltage, keyCurrent, keyPower, keyTemperature, keyEnergy}

func timerKey(id string) string        { return prefixTimers + "/" + id }
func timerEnabledKey(id string) string { return timerKey(id) + "/enabled" }
func deviceKey(id string) string       { return prefixDevices + "/" + id }
func deviceStatusKey(id string) string { return deviceKey(id) + "/status" }
func statusJSON(on bool) json.RawMessage {
	return json.RawMessage(strconv.Quote(models.StatusString(on)))
}
func boolJSON(b bool) json.RawMessage { return json.RawMessage(strconv.FormatBool(b)) }

// childID returns the id of a direct child key under prefix, or "".
func childID(key, prefix string) string {
	rest, ok := strings.CutPrefix(key, prefix+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// decodeFloat accepts JSON numbers and numeric strings.
func decodeFloat(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// decodeSwitch accepts "on"/"off", booleans and 0/1.
func decodeSwitch(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	if f, ok := decodeFloat(raw); ok {
		return f != 0, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true":
			return true, true
		case "off", "false":
			return false, true
		}
	}
	return false, false
}

func decodeTimer(id string, raw json.RawMessage) (models.Timer, error) {
	var t models.Timer
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.Timer{}, fmt.Errorf("decode timer %s: %w", id, err)
	}
	t.ID = id
	return t, nil
}

type deviceRecord struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Status json.RawMessage `json:"status"`
}

func decodeDevice(id string, raw json.RawMessage) (models.Device, error) {
	var rec deviceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Device{}, fmt.Errorf("decode device %s: %w", id, err)
	}
	d := models.Device{ID: id, Name: rec.Name, Type: rec.Type, Status: models.StatusOff}
	if d.Name == "" {
		d.Name = id
	}
	if on, ok := decodeSwitch(rec.Status); ok && rec.Status != nil {
		d.Status = models.StatusString(on)
	}
	return d, nil
}

// sortTimers orders timers by creation time, then id.
func sortTimers(ts []models.Timer) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

func sortDevices(ds []models.Device) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Name != ds[j].Name {
			return ds[i].Name < ds[j].Name
		}
		return ds[i].ID < ds[j].ID
	})
}
