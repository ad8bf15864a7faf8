package hw

import "sync"

// Registers is 32-bit memory mapped register access.
type Registers interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

// Set ORs mask into the register at addr.
func Set(r Registers, addr, mask uint32) {
	r.Write32(addr, r.Read32(addr)|mask)
}

// Clear removes mask from the register at addr.
func Clear(r Registers, addr, mask uint32) {
	r.Write32(addr, r.Read32(addr)&^mask)
}

// Update writes (old &^ mask) | val to the register at addr.
func Update(r Registers, addr, mask, val uint32) {
	r.Write32(addr, r.Read32(addr)&^mask|val&mask)
}

// Access is one logged register access.
type Access struct {
	Addr  uint32
	Value uint32
	Write bool
}

// Map is a register file held in memory. It logs every access and can run
// hooks on writes to emulate hardware side effects.
type Map struct {
	mu    sync.Mutex
	regs  map[uint32]uint32
	hooks map[uint32]func(m *Map, val uint32)
	log   []Access
}

// NewMap returns an empty register file. Unwritten registers read as zero.
func NewMap() *Map {
	return &Map{
		regs:  make(map[uint32]uint32),
		hooks: make(map[uint32]func(*Map, uint32)),
	}
}

// Read32 returns the register value.
func (m *Map) Read32(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.regs[addr]
	m.log = append(m.log, Access{Addr: addr, Value: v})
	return v
}

// Write32 stores val and runs the write hook for addr, if any.
func (m *Map) Write32(addr uint32, val uint32) {
	m.mu.Lock()
	m.regs[addr] = val
	m.log = append(m.log, Access{Addr: addr, Value: val, Write: true})
	hook := m.hooks[addr]
	m.mu.Unlock()

	if hook != nil {
		hook(m, val)
	}
}

// Poke stores val without logging or running hooks.
func (m *Map) Poke(addr, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = val
}

// Peek returns the register value without logging.
func (m *Map) Peek(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// OnWrite installs fn to run after every write to addr.
func (m *Map) OnWrite(addr uint32, fn func(m *Map, val uint32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[addr] = fn
}

// Writes returns the values written to addr in order.
func (m *Map) Writes(addr uint32) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint32
	for _, a := range m.log {
		if a.Write && a.Addr == addr {
			out = append(out, a.Value)
		}
	}
	return out
}

// Log returns a copy of the access log.
func (m *Map) Log() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Access(nil), m.log...)
}
