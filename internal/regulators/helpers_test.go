package regulators

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/i2c"
	"github.com/smccarney/phosphor-power/internal/services"
)

// fakeI2C is an in-memory bus attachment. Reads and writes hit a 256-byte
// register file; writes are also appended to a shared log so tests can check
// ordering across devices. failReads/failWrites trigger transaction errors
// on specific registers.
type fakeI2C struct {
	label string
	log   *writeLog

	mu         sync.Mutex
	registers  [256]byte
	failReads  map[uint8]bool
	failWrites map[uint8]bool
}

type writeLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *writeLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *writeLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func newFakeI2C(label string, log *writeLog) *fakeI2C {
	return &fakeI2C{
		label:      label,
		log:        log,
		failReads:  make(map[uint8]bool),
		failWrites: make(map[uint8]bool),
	}
}

func (f *fakeI2C) transactionError(op string, register uint8) error {
	return &i2c.TransactionError{
		Bus:      0,
		Address:  0x70,
		Register: register,
		Op:       op,
		Err:      fmt.Errorf("remote I/O error"),
	}
}

func (f *fakeI2C) ReadByte(ctx context.Context, register uint8) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads[register] {
		return 0, f.transactionError("read", register)
	}
	return f.registers[register], nil
}

func (f *fakeI2C) ReadBytes(ctx context.Context, register uint8, count int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads[register] {
		return nil, f.transactionError("read", register)
	}
	out := make([]byte, count)
	copy(out, f.registers[int(register):int(register)+count])
	return out, nil
}

func (f *fakeI2C) WriteByte(ctx context.Context, register uint8, value uint8) error {
	return f.WriteBytes(ctx, register, []byte{value})
}

func (f *fakeI2C) WriteBytes(ctx context.Context, register uint8, values []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites[register] {
		return f.transactionError("write", register)
	}
	copy(f.registers[int(register):], values)
	if f.log != nil {
		f.log.add(fmt.Sprintf("%s:0x%02X", f.label, register))
	}
	return nil
}

func (f *fakeI2C) Close() error {
	return nil
}

func (f *fakeI2C) set(register uint8, values ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.registers[int(register):], values)
}

type fakePowerState struct {
	on bool
}

func (f *fakePowerState) IsPoweredOn() (bool, error) {
	return f.on, nil
}

func testServices() *services.Services {
	return &services.Services{
		Logger:     zap.NewNop(),
		Presence:   services.NewStaticPresence(nil),
		PowerState: &fakePowerState{on: true},
		VPD:        services.NewStaticVPD(nil),
	}
}

// writeAction builds an i2c_write_byte action for the given register.
func writeAction(register uint8, value uint8) Action {
	return Action{Kind: ActionI2CWriteByte, Register: register, Value: value}
}

// mustDevice builds a device or fails the calling test via panic; only used
// with known-good parameters.
func mustDevice(id string, bus i2c.Device, configuration *Configuration, rails ...*Rail) *Device {
	device, err := NewDevice(id, bus, nil, configuration, nil, rails)
	if err != nil {
		panic(err)
	}
	return device
}

func mustRail(id string, configuration *Configuration, monitoring *SensorMonitoring) *Rail {
	rail, err := NewRail(id, configuration, monitoring)
	if err != nil {
		panic(err)
	}
	return rail
}

func mustChassis(number int, devices ...*Device) *Chassis {
	chassis, err := NewChassis(number, devices)
	if err != nil {
		panic(err)
	}
	return chassis
}

func mustSystem(rules []*Rule, chassis ...*Chassis) *System {
	system, err := NewSystem(rules, chassis)
	if err != nil {
		panic(err)
	}
	return system
}
