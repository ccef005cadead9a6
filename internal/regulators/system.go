package regulators

import (
	"context"

	"github.com/smccarney/phosphor-power/internal/services"
)

// System is the root of the hierarchy and the only entry point external
// callers use. The hierarchy and IDMap are immutable in shape after
// construction; Configure and Monitor are idempotent with respect to that
// shape and never fail the process, whatever individual chips do.
type System struct {
	rules   []*Rule
	chassis []*Chassis
	idMap   *IDMap

	// Whether a device-level configuration fault still allows that
	// device's rails to be configured. Defaults to true: maximize the
	// rails left adjustable.
	configureRailsOnDeviceFault bool
}

// NewSystem builds the system and populates the IDMap from the fully
// assembled hierarchy. Fails with a *BuildError on a duplicate rule, device,
// or rail identifier; the caller must not run with a partially built system.
func NewSystem(rules []*Rule, chassis []*Chassis) (*System, error) {
	s := &System{
		rules:                       rules,
		chassis:                     chassis,
		idMap:                       NewIDMap(),
		configureRailsOnDeviceFault: true,
	}
	for _, rule := range rules {
		if rule.ID == "" {
			return nil, buildErrorf("rule ID is empty")
		}
		if err := s.idMap.AddRule(rule); err != nil {
			return nil, err
		}
	}
	for _, ch := range chassis {
		if err := ch.addToIDMap(s.idMap); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetConfigureRailsOnDeviceFault changes the device-fault policy. Must be
// called before the first execution; the hierarchy is read-only afterwards.
func (s *System) SetConfigureRailsOnDeviceFault(enabled bool) {
	s.configureRailsOnDeviceFault = enabled
}

// Chassis returns a copy of the chassis list in construction order.
func (s *System) Chassis() []*Chassis {
	out := make([]*Chassis, len(s.chassis))
	copy(out, s.chassis)
	return out
}

// Rules returns a copy of the rule list.
func (s *System) Rules() []*Rule {
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// IDMap returns the identifier registry.
func (s *System) IDMap() *IDMap {
	return s.idMap
}

// Configure applies configuration changes to every device and rail,
// traversing chassis, devices, and rails in construction order. Faults are
// recorded at the device or rail they occurred on and never abort the
// traversal.
func (s *System) Configure(ctx context.Context, svc *services.Services) {
	for _, ch := range s.chassis {
		ch.configure(ctx, svc, s)
	}
}

// Monitor runs one monitoring pass: phase fault detection per device and
// sensor reads per rail. Safe to call repeatedly on a timer.
func (s *System) Monitor(ctx context.Context, svc *services.Services) {
	for _, ch := range s.chassis {
		ch.monitor(ctx, svc, s)
	}
}

// ClearFaults resets all recorded faults, error histories, and presence
// caches. Called on power-on transitions so previously repaired faults are
// reported again if they recur.
func (s *System) ClearFaults() {
	for _, ch := range s.chassis {
		ch.clearFaults()
	}
}
