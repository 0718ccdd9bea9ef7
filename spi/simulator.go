package spi

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/mklimuk/gyroscope"
)

var _ gyroscope.SPIBus = &Simulator{}

const (
	simWhoAmI  byte = 0x0F
	simCtrl1   byte = 0x20
	simRef     byte = 0x25
	simTemp    byte = 0x26
	simStatus  byte = 0x27
	simOutXL   byte = 0x28
	simOutZH   byte = 0x2D
	simRead    byte = 0x80
	simMulti   byte = 0x40
	simAddress byte = 0x3F

	simIdentity byte = 0xD3
	// ZYXDA plus per-axis new data bits
	simStatusReady byte = 0x0F
)

// SampleFunc produces the n-th simulated output sample.
type SampleFunc func(n int) (x, y, z int16)

// Simulator is an in-memory I3G4250D register file behind the SPIBus contract.
// It honours the read flag and the auto-increment flag of the address byte,
// keeps WHO_AM_I read-only and raises the new data bits whenever a sample is
// loaded. Reading an axis high byte clears that axis' new data bit.
type Simulator struct {
	mx       sync.Mutex
	regs     [64]byte
	selected bool
	frame    []byte
	addr     byte
	read     bool
	multi    bool
	writes   [][]byte
	next     SampleFunc
	count    int
}

// NewSimulator returns a powered-down simulated device. When next is not nil
// a new sample is loaded every time STATUS is read with no data pending.
func NewSimulator(next SampleFunc) *Simulator {
	s := &Simulator{next: next}
	s.regs[simWhoAmI] = simIdentity
	s.regs[simCtrl1] = 0x07
	return s
}

// SetSample loads output registers and raises the new data bits.
func (s *Simulator) SetSample(x, y, z int16) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.load(x, y, z)
}

func (s *Simulator) load(x, y, z int16) {
	binary.LittleEndian.PutUint16(s.regs[simOutXL:], uint16(x))
	binary.LittleEndian.PutUint16(s.regs[simOutXL+2:], uint16(y))
	binary.LittleEndian.PutUint16(s.regs[simOutXL+4:], uint16(z))
	s.regs[simStatus] = simStatusReady
}

// SetTemperature sets the OUT_TEMP register.
func (s *Simulator) SetTemperature(t int8) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.regs[simTemp] = byte(t)
}

// Register returns the current register content.
func (s *Simulator) Register(addr byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.regs[addr&simAddress]
}

// Writes returns every write transaction seen so far (address byte first).
func (s *Simulator) Writes() [][]byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	res := make([][]byte, len(s.writes))
	copy(res, s.writes)
	return res
}

func (s *Simulator) Select(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.selected = true
	s.frame = nil
	return nil
}

func (s *Simulator) Deselect(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.selected && !s.read && len(s.frame) > 1 {
		s.writes = append(s.writes, s.frame)
	}
	s.selected = false
	s.frame = nil
	return nil
}

func (s *Simulator) Transmit(ctx context.Context, data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.selected {
		return ErrNotSelected
	}
	for _, b := range data {
		if len(s.frame) == 0 {
			s.addr = b & simAddress
			s.read = b&simRead != 0
			s.multi = b&simMulti != 0
			s.frame = append(s.frame, b)
			continue
		}
		s.frame = append(s.frame, b)
		if !s.read {
			s.write(s.addr, b)
			if s.multi {
				s.addr = (s.addr + 1) & simAddress
			}
		}
	}
	return nil
}

func (s *Simulator) write(addr, value byte) {
	if addr < simCtrl1 || addr > simRef {
		return
	}
	s.regs[addr] = value
}

func (s *Simulator) Receive(ctx context.Context, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.selected || len(s.frame) == 0 || !s.read {
		return ErrNotSelected
	}
	for i := range buffer {
		buffer[i] = s.readByte(s.addr)
		if s.multi {
			s.addr = (s.addr + 1) & simAddress
		}
	}
	return nil
}

func (s *Simulator) readByte(addr byte) byte {
	if addr == simStatus && s.regs[simStatus]&0x07 == 0 && s.next != nil {
		x, y, z := s.next(s.count)
		s.count++
		s.load(x, y, z)
	}
	v := s.regs[addr]
	if addr > simOutXL && addr <= simOutZH && (addr-simOutXL)%2 == 1 {
		s.regs[simStatus] &^= 1 << ((addr - simOutXL) / 2)
		if s.regs[simStatus]&0x07 == 0 {
			s.regs[simStatus] = 0
		}
	}
	return v
}
