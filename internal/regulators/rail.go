package regulators

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/services"
)

// Rail is one regulated voltage output of a device. It owns an optional
// configuration and an optional sensor monitoring definition, the latest
// sensor values observed, and the faults recorded against it.
type Rail struct {
	id               string
	configuration    *Configuration
	sensorMonitoring *SensorMonitoring

	mu      sync.Mutex
	sensors map[SensorType]float64

	faults faultState
}

// NewRail fails with a *BuildError if the identifier is empty. Configuration
// and sensor monitoring are both optional.
func NewRail(id string, configuration *Configuration, sensorMonitoring *SensorMonitoring) (*Rail, error) {
	if id == "" {
		return nil, buildErrorf("rail ID is empty")
	}
	return &Rail{
		id:               id,
		configuration:    configuration,
		sensorMonitoring: sensorMonitoring,
		sensors:          make(map[SensorType]float64),
	}, nil
}

func (r *Rail) ID() string {
	return r.id
}

func (r *Rail) Configuration() *Configuration {
	return r.configuration
}

func (r *Rail) SensorMonitoring() *SensorMonitoring {
	return r.sensorMonitoring
}

func (r *Rail) setSensor(sensor SensorType, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[sensor] = value
}

// Sensors returns a copy of the last observed sensor values.
func (r *Rail) Sensors() map[SensorType]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[SensorType]float64, len(r.sensors))
	for sensor, value := range r.sensors {
		out[sensor] = value
	}
	return out
}

// Faults returns a copy of the faults recorded against this rail.
func (r *Rail) Faults() []FaultRecord {
	return r.faults.snapshot()
}

// configure applies the rail's configuration, if any. A failure is recorded
// against this rail and never propagates to sibling rails.
func (r *Rail) configure(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis, device *Device) {
	if r.configuration == nil {
		return
	}
	a := newActionContext(ctx, svc, system, chassis, device)
	a.rail = r
	if err := r.configuration.execute(a); err != nil {
		r.faults.record(device.ID(), r.id, err)
		svc.Logger.Error("rail configuration failed",
			zap.String("device", device.ID()),
			zap.String("rail", r.id),
			zap.Error(err))
		return
	}
	svc.Logger.Debug("rail configured",
		zap.String("device", device.ID()),
		zap.String("rail", r.id))
}

// monitor reads the rail's sensors, if monitoring is defined.
func (r *Rail) monitor(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis, device *Device) {
	if r.sensorMonitoring == nil {
		return
	}
	r.sensorMonitoring.execute(ctx, svc, system, chassis, device, r)
}

// clearFaults resets recorded faults and monitoring error history. Called on
// power-on so a repaired fault is reported again if it recurs.
func (r *Rail) clearFaults() {
	r.faults.clear()
	if r.sensorMonitoring != nil {
		r.sensorMonitoring.ClearErrorHistory()
	}
}
