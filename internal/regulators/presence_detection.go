package regulators

import (
	"context"

	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/services"
)

// PresenceDetection defines how to determine whether an optional device is
// physically present, usually by checking a presence GPIO or inventory
// state via compare_presence. Devices that are always installed carry no
// PresenceDetection and are treated as present.
//
// The result is cached: presence cannot change while the chassis is powered,
// and re-running the actions on every monitoring tick would waste bus
// bandwidth. The cache is cleared on power state changes.
type PresenceDetection struct {
	actions []Action
	cached  *bool
}

func NewPresenceDetection(actions []Action) *PresenceDetection {
	return &PresenceDetection{actions: actions}
}

func (p *PresenceDetection) Actions() []Action {
	return p.actions
}

// ClearCache discards the cached presence value so the next execution
// re-runs the actions.
func (p *PresenceDetection) ClearCache() {
	p.cached = nil
}

// execute returns whether the device is present. If the actions fail the
// device is assumed present so that configuration and monitoring are still
// attempted; a wrong skip would leave a real regulator unconfigured.
func (p *PresenceDetection) execute(ctx context.Context, svc *services.Services,
	system *System, chassis *Chassis, device *Device) bool {
	if p.cached != nil {
		return *p.cached
	}
	a := newActionContext(ctx, svc, system, chassis, device)
	present := true
	result, err := executeActions(a, p.actions)
	if err != nil {
		svc.Logger.Error("presence detection failed, assuming device is present",
			zap.String("device", device.ID()),
			zap.Error(err))
	} else {
		present = result
	}
	p.cached = &present
	return present
}
