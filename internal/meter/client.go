// Package meter polls a PZEM-004T style Modbus energy meter and feeds its
// readings into the store.
package meter

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// Client is a lazily connected Modbus client for one meter.
type Client struct {
	client *modbus.ModbusClient
	mu     sync.Mutex

	url     string
	speed   uint
	unitID  uint8
	timeout time.Duration
}

// NewClient accepts tcp://host:port or rtu:///dev/ttyUSB0 style URLs; speed
// only applies to serial links.
func NewClient(url string, speed uint, unitID uint8, timeout time.Duration) *Client {
	return &Client{url: url, speed: speed, unitID: unitID, timeout: timeout}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     c.url,
		Speed:   c.speed,
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("create modbus client: %w", err)
	}
	if err := client.Open(); err != nil {
		return fmt.Errorf("connect to meter %s: %w", c.url, err)
	}
	client.SetUnitId(c.unitID)
	c.client = client
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) ReadInputRegisters(address, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, fmt.Errorf("meter not connected")
	}
	regs, err := c.client.ReadRegisters(address, quantity, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("read input registers at %d: %w", address, err)
	}
	return regs, nil
}

func (c *Client) Reconnect() error {
	_ = c.Close()
	return c.Connect()
}
