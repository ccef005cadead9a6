package regulators

import (
	"context"

	"github.com/smccarney/phosphor-power/internal/services"
)

// maxRuleDepth caps run_rule nesting so a configuration with a rule cycle
// cannot recurse forever.
const maxRuleDepth = 30

// ActionContext is the mutable state threaded through one execution of an
// action sequence: the current position in the hierarchy, the IDMap for
// cross references, and the last comparison result. A fresh context is
// created per device- or rail-level execution and never shared across
// concurrent invocations.
type ActionContext struct {
	ctx      context.Context
	services *services.Services
	idMap    *IDMap

	system  *System
	chassis *Chassis
	device  *Device
	rail    *Rail

	// Optional volts value from the enclosing configuration, consumed by
	// pmbus_write_vout_command when the action itself carries none.
	volts *float64

	// Result of the most recent comparison action.
	lastResult bool

	ruleDepth int

	// During monitoring, hardware faults are downgraded to records so the
	// remaining actions still run. faultSink receives the downgraded
	// errors; a nil sink means abort on the first hardware fault.
	faultSink func(error)

	// Phase faults detected by log_phase_fault during this execution.
	phaseFaults map[PhaseFaultType]bool
}

func newActionContext(ctx context.Context, svc *services.Services, system *System,
	chassis *Chassis, device *Device) *ActionContext {
	return &ActionContext{
		ctx:         ctx,
		services:    svc,
		idMap:       system.idMap,
		system:      system,
		chassis:     chassis,
		device:      device,
		phaseFaults: make(map[PhaseFaultType]bool),
	}
}

// LastResult returns the value of the last-comparison-result register.
func (a *ActionContext) LastResult() bool {
	return a.lastResult
}

// Device returns the device actions currently operate on. set_device changes
// it mid-sequence.
func (a *ActionContext) Device() *Device {
	return a.device
}

// Rail returns the current rail, or nil outside rail-level execution.
func (a *ActionContext) Rail() *Rail {
	return a.rail
}
