package i2c

import (
	"context"
	"testing"
	"time"
)

// deadlineCheck records whether each call arrived with a context deadline.
type deadlineCheck struct {
	sawDeadline bool
}

func (d *deadlineCheck) note(ctx context.Context) {
	_, d.sawDeadline = ctx.Deadline()
}

func (d *deadlineCheck) ReadByte(ctx context.Context, register uint8) (uint8, error) {
	d.note(ctx)
	return 0, nil
}

func (d *deadlineCheck) ReadBytes(ctx context.Context, register uint8, count int) ([]byte, error) {
	d.note(ctx)
	return make([]byte, count), nil
}

func (d *deadlineCheck) WriteByte(ctx context.Context, register uint8, value uint8) error {
	d.note(ctx)
	return nil
}

func (d *deadlineCheck) WriteBytes(ctx context.Context, register uint8, values []byte) error {
	d.note(ctx)
	return nil
}

func (d *deadlineCheck) Close() error {
	return nil
}

func TestWithTimeoutAddsDeadline(t *testing.T) {
	inner := &deadlineCheck{}
	dev := WithTimeout(inner, 100*time.Millisecond)
	ctx := context.Background()

	dev.ReadByte(ctx, 0x8B)
	if !inner.sawDeadline {
		t.Error("ReadByte ran without a deadline")
	}
	inner.sawDeadline = false
	dev.ReadBytes(ctx, 0x8B, 2)
	if !inner.sawDeadline {
		t.Error("ReadBytes ran without a deadline")
	}
	inner.sawDeadline = false
	dev.WriteByte(ctx, 0x21, 0x01)
	if !inner.sawDeadline {
		t.Error("WriteByte ran without a deadline")
	}
	inner.sawDeadline = false
	dev.WriteBytes(ctx, 0x21, []byte{0x4D, 0x02})
	if !inner.sawDeadline {
		t.Error("WriteBytes ran without a deadline")
	}
}

func TestWithTimeoutZeroReturnsUnwrapped(t *testing.T) {
	inner := &deadlineCheck{}
	if dev := WithTimeout(inner, 0); dev != Device(inner) {
		t.Error("zero timeout should return the device unwrapped")
	}
}
