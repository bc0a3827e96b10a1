package meter

import "fmt"

// PZEM-004T v3 input register map.
const (
	regStart = 0x0000
	regCount = 9

	regVoltage     = 0
	regCurrent     = 1 // 32-bit
	regPower       = 3 // 32-bit
	regEnergy      = 5 // 32-bit
	regFrequency   = 7
	regPowerFactor = 8
)

// Reading is one decoded sample in engineering units.
type Reading struct {
	Voltage     float64 // V
	Current     float64 // A
	Power       float64 // W
	EnergyWh    float64 // Wh since the meter was last reset
	Frequency   float64 // Hz
	PowerFactor float64
}

// EnergyKWh is the energy counter in kWh, the unit the store uses.
func (r Reading) EnergyKWh() float64 { return r.EnergyWh / 1000 }

// Decode converts a block of registers starting at 0x0000. 32-bit values
// are stored low word first.
func Decode(regs []uint16) (Reading, error) {
	if len(regs) < regCount {
		return Reading{}, fmt.Errorf("decode: want %d registers, got %d", regCount, len(regs))
	}
	return Reading{
		Voltage:     float64(regs[regVoltage]) / 10,
		Current:     float64(uint32At(regs, regCurrent)) / 1000,
		Power:       float64(uint32At(regs, regPower)) / 10,
		EnergyWh:    float64(uint32At(regs, regEnergy)),
		Frequency:   float64(regs[regFrequency]) / 10,
		PowerFactor: float64(regs[regPowerFactor]) / 100,
	}, nil
}

func uint32At(regs []uint16, i int) uint32 {
	return uint32(regs[i]) | uint32(regs[i+1])<<16
}
