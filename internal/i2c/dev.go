package i2c

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request codes from the Linux i2c-dev interface.
const (
	ioctlSlave = 0x0703 // I2C_SLAVE
	ioctlRdwr  = 0x0707 // I2C_RDWR

	msgRead = 0x0001 // I2C_M_RD

	// Largest register payload the engine ever transfers in one
	// transaction. SMBus block operations cap at 32 data bytes.
	maxBlockLen = 32
)

// i2cMsg mirrors the kernel's struct i2c_msg. The buffer fields stay
// unsafe.Pointer, never uintptr, so the runtime keeps the buffers alive and
// updates the addresses if the stack moves before the ioctl fires.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   unsafe.Pointer
}

type i2cRdwrData struct {
	msgs  unsafe.Pointer
	nmsgs uint32
}

// Dev is a Device backed by a Linux /dev/i2c-N character device. All
// transactions are serialized per chip; the kernel serializes across chips
// sharing a bus.
type Dev struct {
	bus     int
	address uint16
	file    *os.File
	mu      sync.Mutex
}

// Open opens the i2c-dev node for the given bus number and binds it to the
// chip at the given 7-bit address.
func Open(bus int, address uint16) (*Dev, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(file.Fd()), ioctlSlave, int(address)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to bind addr 0x%02X on %s: %w", address, path, err)
	}
	return &Dev{bus: bus, address: address, file: file}, nil
}

func (d *Dev) ReadByte(ctx context.Context, register uint8) (uint8, error) {
	values, err := d.ReadBytes(ctx, register, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

func (d *Dev) ReadBytes(ctx context.Context, register uint8, count int) ([]byte, error) {
	if count < 1 || count > maxBlockLen {
		return nil, &TransactionError{Bus: d.bus, Address: d.address, Register: register,
			Op: "read", Err: fmt.Errorf("invalid byte count %d", count)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	reg := [1]byte{register}
	buf := make([]byte, count)
	msgs := [2]i2cMsg{
		{addr: d.address, flags: 0, len: 1, buf: unsafe.Pointer(&reg[0])},
		{addr: d.address, flags: msgRead, len: uint16(count), buf: unsafe.Pointer(&buf[0])},
	}
	if err := d.transfer(msgs[:]); err != nil {
		return nil, &TransactionError{Bus: d.bus, Address: d.address, Register: register,
			Op: "read", Err: err}
	}
	return buf, nil
}

func (d *Dev) WriteByte(ctx context.Context, register uint8, value uint8) error {
	return d.WriteBytes(ctx, register, []byte{value})
}

func (d *Dev) WriteBytes(ctx context.Context, register uint8, values []byte) error {
	if len(values) < 1 || len(values) > maxBlockLen {
		return &TransactionError{Bus: d.bus, Address: d.address, Register: register,
			Op: "write", Err: fmt.Errorf("invalid byte count %d", len(values))}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	payload := make([]byte, 0, len(values)+1)
	payload = append(payload, register)
	payload = append(payload, values...)
	msgs := [1]i2cMsg{
		{addr: d.address, flags: 0, len: uint16(len(payload)), buf: unsafe.Pointer(&payload[0])},
	}
	if err := d.transfer(msgs[:]); err != nil {
		return &TransactionError{Bus: d.bus, Address: d.address, Register: register,
			Op: "write", Err: err}
	}
	return nil
}

func (d *Dev) transfer(msgs []i2cMsg) error {
	data := i2cRdwrData{
		msgs:  unsafe.Pointer(&msgs[0]),
		nmsgs: uint32(len(msgs)),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), ioctlRdwr,
		uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	runtime.KeepAlive(&data)
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}
