package meter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart_switch/internal/repository"
)

// 230.4 V, 5.123 A, 1180.2 W, 70000 Wh, 50.0 Hz, pf 0.98
var sample = []uint16{2304, 5123, 0, 11802, 0, 70000 & 0xFFFF, 70000 >> 16, 500, 98}

type fakeReader struct {
	regs       []uint16
	readErrs   []error
	connectErr error
	reconnects int
}

func (f *fakeReader) Connect() error { return f.connectErr }

func (f *fakeReader) Reconnect() error {
	f.reconnects++
	return nil
}

func (f *fakeReader) ReadInputRegisters(address, quantity uint16) ([]uint16, error) {
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.regs, nil
}

type memStore struct {
	repository.KVStore

	mu     sync.Mutex
	values map[string]string
	err    error
}

func (m *memStore) Set(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = string(value)
	return nil
}

func TestDecode(t *testing.T) {
	r, err := Decode(sample)
	require.NoError(t, err)

	assert.InDelta(t, 230.4, r.Voltage, 1e-9)
	assert.InDelta(t, 5.123, r.Current, 1e-9)
	assert.InDelta(t, 1180.2, r.Power, 1e-9)
	assert.InDelta(t, 70000, r.EnergyWh, 1e-9)
	assert.InDelta(t, 70, r.EnergyKWh(), 1e-9)
	assert.InDelta(t, 50, r.Frequency, 1e-9)
	assert.InDelta(t, 0.98, r.PowerFactor, 1e-9)
}

func TestDecode_ShortBlock(t *testing.T) {
	_, err := Decode(sample[:4])
	assert.Error(t, err)
}

func TestPoll_WritesReadingToStore(t *testing.T) {
	store := &memStore{}
	p := NewPoller(&fakeReader{regs: sample}, store, 0, nil)

	_, err := p.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"voltage": "230.4",
		"current": "5.123",
		"power":   "1180.2",
		"energy":  "70",
	}, store.values)
}

func TestPoll_ReconnectsOnceAfterReadError(t *testing.T) {
	reader := &fakeReader{regs: sample, readErrs: []error{errors.New("timeout")}}
	p := NewPoller(reader, &memStore{}, 0, nil)

	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reader.reconnects)
	assert.InDelta(t, 230.4, r.Voltage, 1e-9)
}

func TestPoll_Errors(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		p := NewPoller(&fakeReader{connectErr: errors.New("no route")}, &memStore{}, 0, nil)
		_, err := p.Poll(context.Background())
		assert.ErrorContains(t, err, "no route")
	})
	t.Run("read after reconnect", func(t *testing.T) {
		reader := &fakeReader{readErrs: []error{errors.New("a"), errors.New("b")}}
		p := NewPoller(reader, &memStore{}, 0, nil)
		_, err := p.Poll(context.Background())
		assert.ErrorContains(t, err, "read after reconnect")
	})
	t.Run("store", func(t *testing.T) {
		p := NewPoller(&fakeReader{regs: sample}, &memStore{err: errors.New("locked")}, 0, nil)
		_, err := p.Poll(context.Background())
		assert.ErrorContains(t, err, "store voltage")
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &memStore{}
	p := NewPoller(&fakeReader{regs: sample}, store, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "230.4", store.values["voltage"])
}
