package regulators

import (
	"context"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/services"
)

// maxSensorErrorCount is the number of consecutive failing monitoring passes
// tolerated before a fault is recorded. Bus transactions against regulator
// chips occasionally fail transiently; a single bad pass is not a fault.
const maxSensorErrorCount = 6

// SensorMonitoring defines how to read the sensors of one voltage rail, such
// as output voltage, output current, and temperature. The actions run
// repeatedly on a timer; values land on the rail for the status surface.
//
// Monitoring must observe every rail even when one chip is unresponsive, so
// hardware faults inside the action sequence are collected and the remaining
// actions still run. Each fault type is recorded once per occurrence streak
// rather than once per tick.
type SensorMonitoring struct {
	actions []Action

	errorCount int
	logged     map[string]bool
}

func NewSensorMonitoring(actions []Action) *SensorMonitoring {
	return &SensorMonitoring{
		actions: actions,
		logged:  make(map[string]bool),
	}
}

func (s *SensorMonitoring) Actions() []Action {
	return s.actions
}

// ClearErrorHistory forgets previously recorded errors so they are reported
// again if they recur. Called when the system powers on.
func (s *SensorMonitoring) ClearErrorHistory() {
	s.errorCount = 0
	s.logged = make(map[string]bool)
}

func (s *SensorMonitoring) execute(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis, device *Device, rail *Rail) {
	a := newActionContext(ctx, svc, system, chassis, device)
	a.rail = rail

	var faults []error
	a.faultSink = func(err error) { faults = append(faults, err) }

	if _, err := executeActions(a, s.actions); err != nil {
		// Non-hardware error: aborted the remaining actions, still only
		// recorded against this rail.
		faults = append(faults, err)
	}

	if len(faults) == 0 {
		s.errorCount = 0
		return
	}

	if s.errorCount < maxSensorErrorCount {
		s.errorCount++
		svc.Logger.Debug("sensor monitoring error, tolerating as transient",
			zap.String("device", device.ID()),
			zap.String("rail", rail.ID()),
			zap.Int("errorCount", s.errorCount),
			zap.Errors("errors", faults))
		return
	}

	for _, fault := range faults {
		kind := faultType(fault)
		rail.faults.record(device.ID(), rail.ID(), fault)
		if s.logged[kind] {
			continue
		}
		s.logged[kind] = true
		svc.Logger.Error("sensor monitoring failed",
			zap.String("device", device.ID()),
			zap.String("rail", rail.ID()),
			zap.Error(fault))
	}
}
