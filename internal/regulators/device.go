package regulators

import (
	"context"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/i2c"
	"github.com/smccarney/phosphor-power/internal/services"
)

// Device is one physical regulator chip, addressable on an I2C bus. It owns
// its rails and its optional presence detection, configuration, and phase
// fault detection definitions. Ownership is exclusive: a device's rails live
// exactly as long as the device.
type Device struct {
	id                  string
	i2c                 i2c.Device
	presenceDetection   *PresenceDetection
	configuration       *Configuration
	phaseFaultDetection *PhaseFaultDetection
	rails               []*Rail

	faults faultState
}

// NewDevice fails with a *BuildError if the identifier is empty. All
// definition parameters are optional; a device with none of them is a valid
// no-op during both configuration and monitoring.
func NewDevice(id string, bus i2c.Device, presenceDetection *PresenceDetection,
	configuration *Configuration, phaseFaultDetection *PhaseFaultDetection,
	rails []*Rail) (*Device, error) {
	if id == "" {
		return nil, buildErrorf("device ID is empty")
	}
	return &Device{
		id:                  id,
		i2c:                 bus,
		presenceDetection:   presenceDetection,
		configuration:       configuration,
		phaseFaultDetection: phaseFaultDetection,
		rails:               rails,
	}, nil
}

func (d *Device) ID() string {
	return d.id
}

func (d *Device) I2C() i2c.Device {
	return d.i2c
}

func (d *Device) Configuration() *Configuration {
	return d.configuration
}

func (d *Device) PresenceDetection() *PresenceDetection {
	return d.presenceDetection
}

func (d *Device) PhaseFaultDetection() *PhaseFaultDetection {
	return d.phaseFaultDetection
}

// Rails returns a copy of the device's rails in construction order.
func (d *Device) Rails() []*Rail {
	out := make([]*Rail, len(d.rails))
	copy(out, d.rails)
	return out
}

// Faults returns a copy of the faults recorded against this device.
func (d *Device) Faults() []FaultRecord {
	return d.faults.snapshot()
}

// addToIDMap registers this device and its rails.
func (d *Device) addToIDMap(idMap *IDMap) error {
	if err := idMap.AddDevice(d); err != nil {
		return err
	}
	for _, rail := range d.rails {
		if err := idMap.AddRail(rail); err != nil {
			return err
		}
	}
	return nil
}

// isPresent runs presence detection if defined. Devices without presence
// detection are always present.
func (d *Device) isPresent(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis) bool {
	if d.presenceDetection == nil {
		return true
	}
	return d.presenceDetection.execute(ctx, svc, system, chassis, d)
}

// configure applies the device's configuration and then configures every
// rail in order. A device-level failure is recorded here and, under the
// default policy, does not prevent rail configuration: leaving as many rails
// adjustable as possible is safer than skipping them.
func (d *Device) configure(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis) {
	if !d.isPresent(ctx, svc, system, chassis) {
		svc.Logger.Debug("device not present, skipping configuration",
			zap.String("device", d.id))
		return
	}

	if d.configuration != nil {
		a := newActionContext(ctx, svc, system, chassis, d)
		if err := d.configuration.execute(a); err != nil {
			d.faults.record(d.id, "", err)
			svc.Logger.Error("device configuration failed",
				zap.String("device", d.id),
				zap.Error(err))
			if !system.configureRailsOnDeviceFault {
				return
			}
		}
	}

	for _, rail := range d.rails {
		rail.configure(ctx, svc, system, chassis, d)
	}
}

// monitor runs phase fault detection and then reads sensors for every rail
// in order. A fault on one rail never prevents monitoring the others.
func (d *Device) monitor(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis) {
	if !d.isPresent(ctx, svc, system, chassis) {
		return
	}

	if d.phaseFaultDetection != nil {
		d.phaseFaultDetection.execute(ctx, svc, system, chassis, d)
	}

	for _, rail := range d.rails {
		rail.monitor(ctx, svc, system, chassis, d)
	}
}

// clearFaults resets recorded faults, error histories, and the presence
// cache for this device and its rails.
func (d *Device) clearFaults() {
	d.faults.clear()
	if d.presenceDetection != nil {
		d.presenceDetection.ClearCache()
	}
	if d.phaseFaultDetection != nil {
		d.phaseFaultDetection.ClearErrorHistory()
	}
	for _, rail := range d.rails {
		rail.clearFaults()
	}
}
