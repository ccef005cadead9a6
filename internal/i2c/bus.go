package i2c

import (
	"context"
	"fmt"
)

// Device is the read/write interface to one I2C-addressable chip. Every call
// may block for the duration of a bus transaction and may fail with a
// *TransactionError if the chip NACKs or the bus is stuck.
type Device interface {
	ReadByte(ctx context.Context, register uint8) (uint8, error)
	ReadBytes(ctx context.Context, register uint8, count int) ([]byte, error)
	WriteByte(ctx context.Context, register uint8, value uint8) error
	WriteBytes(ctx context.Context, register uint8, values []byte) error
	Close() error
}

// TransactionError describes a failed bus transaction against one chip.
type TransactionError struct {
	Bus      int
	Address  uint16
	Register uint8
	Op       string
	Err      error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("i2c %s failed: bus %d addr 0x%02X reg 0x%02X: %v",
		e.Op, e.Bus, e.Address, e.Register, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
