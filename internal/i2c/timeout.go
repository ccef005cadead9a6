package i2c

import (
	"context"
	"time"
)

// WithTimeout wraps a Device so every transaction carries a per-call
// deadline. A stuck bus then fails one transaction instead of stalling the
// whole monitoring pass. A non-positive timeout returns the device
// unwrapped.
func WithTimeout(inner Device, timeout time.Duration) Device {
	if timeout <= 0 {
		return inner
	}
	return &timeoutDevice{inner: inner, timeout: timeout}
}

type timeoutDevice struct {
	inner   Device
	timeout time.Duration
}

func (d *timeoutDevice) ReadByte(ctx context.Context, register uint8) (uint8, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.ReadByte(ctx, register)
}

func (d *timeoutDevice) ReadBytes(ctx context.Context, register uint8, count int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.ReadBytes(ctx, register, count)
}

func (d *timeoutDevice) WriteByte(ctx context.Context, register uint8, value uint8) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.WriteByte(ctx, register, value)
}

func (d *timeoutDevice) WriteBytes(ctx context.Context, register uint8, values []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.WriteBytes(ctx, register, values)
}

func (d *timeoutDevice) Close() error {
	return d.inner.Close()
}
