package regulators

import (
	"context"

	"github.com/smccarney/phosphor-power/internal/services"
)

// Chassis is one independently powered enclosure containing regulator
// devices. Chassis numbers start at 1; number 0 denotes the whole system and
// is reserved.
type Chassis struct {
	number  int
	devices []*Device
}

// NewChassis fails with a *BuildError if number is less than 1.
func NewChassis(number int, devices []*Device) (*Chassis, error) {
	if number < 1 {
		return nil, buildErrorf("invalid chassis number: %d", number)
	}
	return &Chassis{number: number, devices: devices}, nil
}

func (c *Chassis) Number() int {
	return c.number
}

// Devices returns a copy of the chassis devices in construction order.
func (c *Chassis) Devices() []*Device {
	out := make([]*Device, len(c.devices))
	copy(out, c.devices)
	return out
}

func (c *Chassis) addToIDMap(idMap *IDMap) error {
	for _, device := range c.devices {
		if err := device.addToIDMap(idMap); err != nil {
			return err
		}
	}
	return nil
}

// configure configures every device in construction order. Failures are
// isolated per device; every sibling is still attempted.
func (c *Chassis) configure(ctx context.Context, svc *services.Services, system *System) {
	for _, device := range c.devices {
		device.configure(ctx, svc, system, c)
	}
}

func (c *Chassis) monitor(ctx context.Context, svc *services.Services, system *System) {
	for _, device := range c.devices {
		device.monitor(ctx, svc, system, c)
	}
}

func (c *Chassis) clearFaults() {
	for _, device := range c.devices {
		device.clearFaults()
	}
}
