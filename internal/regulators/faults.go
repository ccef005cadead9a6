package regulators

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smccarney/phosphor-power/internal/i2c"
)

// The fault taxonomy. A BuildError is fatal at startup: the process must not
// run with a partially built hierarchy. A hardware transaction fault
// (i2c.TransactionError or WriteVerificationError) is recoverable and
// isolated to the failing device or rail. A LookupError indicates the
// configuration itself is inconsistent and aborts the referencing action
// sequence. A comparison that simply evaluates false is not a fault at all.

// BuildError reports a malformed hierarchy: a bad chassis number or a
// duplicate or empty identifier.
type BuildError struct {
	Msg string
}

func (e *BuildError) Error() string {
	return e.Msg
}

func buildErrorf(format string, args ...any) *BuildError {
	return &BuildError{Msg: fmt.Sprintf(format, args...)}
}

// LookupError reports an identifier that is not registered in the IDMap.
type LookupError struct {
	Kind string
	ID   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unable to find %s with ID %q", e.Kind, e.ID)
}

// WriteVerificationError reports a register read-back that did not match the
// value just written. Treated with the same severity as a bus fault.
type WriteVerificationError struct {
	DeviceID string
	Register uint8
	Wrote    uint16
	Read     uint16
}

func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("verification failed on device %s reg 0x%02X: wrote 0x%04X, read back 0x%04X",
		e.DeviceID, e.Register, e.Wrote, e.Read)
}

// PhaseFaultError reports a redundant phase failure detected on a
// regulator. Phase faults are produced by log_phase_fault actions, not by
// failed bus transactions.
type PhaseFaultError struct {
	DeviceID  string
	FaultType PhaseFaultType
}

func (e *PhaseFaultError) Error() string {
	return fmt.Sprintf("%s phase fault detected on device %s", e.FaultType, e.DeviceID)
}

// isHardwareFault reports whether err belongs to the recoverable hardware
// transaction category.
func isHardwareFault(err error) bool {
	var te *i2c.TransactionError
	var ve *WriteVerificationError
	return errors.As(err, &te) || errors.As(err, &ve)
}

// FaultRecord is one recorded fault against a device or rail, exposed to the
// status surface between passes.
type FaultRecord struct {
	ID       uuid.UUID `json:"id"`
	Time     time.Time `json:"time"`
	DeviceID string    `json:"device_id"`
	RailID   string    `json:"rail_id,omitempty"`
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Count    int       `json:"count"`
}

func newFaultRecord(deviceID, railID string, err error) FaultRecord {
	return FaultRecord{
		ID:       uuid.New(),
		Time:     time.Now(),
		DeviceID: deviceID,
		RailID:   railID,
		Type:     faultType(err),
		Message:  err.Error(),
	}
}

func faultType(err error) string {
	var be *BuildError
	var le *LookupError
	var ve *WriteVerificationError
	var te *i2c.TransactionError
	var pe *PhaseFaultError
	switch {
	case errors.As(err, &le):
		return "lookup"
	case errors.As(err, &be):
		return "build"
	case errors.As(err, &ve):
		return "write-verification"
	case errors.As(err, &te):
		return "hardware-transaction"
	case errors.As(err, &pe):
		return "phase-fault"
	default:
		return "internal"
	}
}
