package regulators

import (
	"context"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/services"
)

// phaseFaultDebounce is the number of consecutive monitoring passes a phase
// fault must be detected before it is recorded. Phase fault bits can glitch
// during load transients.
const phaseFaultDebounce = 2

// PhaseFaultDetection defines how to detect redundant phase faults on a
// regulator. The actions typically read fault registers and raise
// log_phase_fault when a phase has failed. Detection may run against a
// different chip than the regulator itself, such as an I/O expander wired to
// the phase fault signals; DeviceID selects that chip.
type PhaseFaultDetection struct {
	actions  []Action
	deviceID string

	faultCounts map[PhaseFaultType]int
	logged      map[PhaseFaultType]bool
}

func NewPhaseFaultDetection(actions []Action, deviceID string) *PhaseFaultDetection {
	return &PhaseFaultDetection{
		actions:     actions,
		deviceID:    deviceID,
		faultCounts: make(map[PhaseFaultType]int),
		logged:      make(map[PhaseFaultType]bool),
	}
}

func (p *PhaseFaultDetection) Actions() []Action {
	return p.actions
}

// ClearErrorHistory resets debounce counters and logged fault state.
func (p *PhaseFaultDetection) ClearErrorHistory() {
	p.faultCounts = make(map[PhaseFaultType]int)
	p.logged = make(map[PhaseFaultType]bool)
}

func (p *PhaseFaultDetection) execute(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis, device *Device) {
	a := newActionContext(ctx, svc, system, chassis, device)

	if p.deviceID != "" {
		target, err := system.idMap.GetDevice(p.deviceID)
		if err != nil {
			device.faults.record(device.ID(), "", err)
			svc.Logger.Error("phase fault detection aborted",
				zap.String("device", device.ID()), zap.Error(err))
			return
		}
		a.device = target
	}

	var faults []error
	a.faultSink = func(err error) { faults = append(faults, err) }
	if _, err := executeActions(a, p.actions); err != nil {
		faults = append(faults, err)
	}
	for _, fault := range faults {
		device.faults.record(device.ID(), "", fault)
		svc.Logger.Error("phase fault detection error",
			zap.String("device", device.ID()), zap.Error(fault))
	}

	for _, faultType := range []PhaseFaultType{PhaseFaultN, PhaseFaultNPlusOne} {
		if !a.phaseFaults[faultType] {
			p.faultCounts[faultType] = 0
			continue
		}
		p.faultCounts[faultType]++
		if p.faultCounts[faultType] < phaseFaultDebounce || p.logged[faultType] {
			continue
		}
		p.logged[faultType] = true
		fault := &PhaseFaultError{DeviceID: device.ID(), FaultType: faultType}
		device.faults.record(device.ID(), "", fault)
		svc.Logger.Error("phase fault detected",
			zap.String("device", device.ID()),
			zap.String("faultType", string(faultType)))
	}
}
