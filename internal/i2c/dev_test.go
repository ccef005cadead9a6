package i2c

import (
	"testing"
	"unsafe"
)

// The message structs are handed to the kernel, so their layout must match
// the i2c-dev ABI: struct i2c_msg {__u16 addr; __u16 flags; __u16 len;
// __u8 *buf;} and struct i2c_rdwr_ioctl_data {struct i2c_msg *msgs;
// __u32 nmsgs;}. The buffer fields must also be pointer-typed so the
// runtime tracks the buffers across the ioctl.
func TestI2CMessageLayout(t *testing.T) {
	ptrSize := unsafe.Sizeof(uintptr(0))

	var msg i2cMsg
	if unsafe.Offsetof(msg.addr) != 0 ||
		unsafe.Offsetof(msg.flags) != 2 ||
		unsafe.Offsetof(msg.len) != 4 {
		t.Errorf("i2cMsg header offsets: addr=%d flags=%d len=%d",
			unsafe.Offsetof(msg.addr), unsafe.Offsetof(msg.flags), unsafe.Offsetof(msg.len))
	}
	if unsafe.Offsetof(msg.buf) != ptrSize {
		t.Errorf("i2cMsg.buf offset = %d, want %d", unsafe.Offsetof(msg.buf), ptrSize)
	}
	if unsafe.Sizeof(msg.buf) != ptrSize {
		t.Errorf("i2cMsg.buf size = %d, want pointer size %d", unsafe.Sizeof(msg.buf), ptrSize)
	}

	var data i2cRdwrData
	if unsafe.Offsetof(data.msgs) != 0 || unsafe.Offsetof(data.nmsgs) != ptrSize {
		t.Errorf("i2cRdwrData offsets: msgs=%d nmsgs=%d",
			unsafe.Offsetof(data.msgs), unsafe.Offsetof(data.nmsgs))
	}
	if unsafe.Sizeof(data.msgs) != ptrSize {
		t.Errorf("i2cRdwrData.msgs size = %d, want pointer size %d",
			unsafe.Sizeof(data.msgs), ptrSize)
	}
}

func TestTransactionErrorUnwrap(t *testing.T) {
	inner := &TransactionError{Bus: 3, Address: 0x70, Register: 0x8B, Op: "read"}
	if inner.Unwrap() != nil {
		t.Error("nil cause should unwrap to nil")
	}
	if inner.Error() == "" {
		t.Error("empty error string")
	}
}
