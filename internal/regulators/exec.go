package regulators

import (
	"fmt"

	"github.com/smccarney/phosphor-power/internal/i2c"
	"github.com/smccarney/phosphor-power/internal/pmbus"
)

// executeActions runs actions in order and returns the result of the last
// action executed. Comparisons that evaluate false are not failures; they
// only set the context's last-result register. A hardware fault aborts the
// sequence unless the context carries a fault sink, in which case the fault
// is recorded and the remaining actions still run.
func executeActions(a *ActionContext, actions []Action) (bool, error) {
	var result bool
	for i := range actions {
		r, err := executeAction(a, &actions[i])
		if err != nil {
			if a.faultSink != nil && isHardwareFault(err) {
				a.faultSink(err)
				continue
			}
			return false, err
		}
		result = r
		a.lastResult = r
	}
	return result, nil
}

// executeAction dispatches one action. The switch is exhaustive over
// ActionKind; an unknown kind is a configuration defect.
func executeAction(a *ActionContext, action *Action) (bool, error) {
	switch action.Kind {
	case ActionAnd:
		return executeAnd(a, action)
	case ActionOr:
		return executeOr(a, action)
	case ActionNot:
		result, err := executeAction(a, action.Inner)
		if err != nil {
			return false, err
		}
		a.lastResult = !result
		return !result, nil
	case ActionIf:
		return executeIf(a, action)
	case ActionRunRule:
		return executeRunRule(a, action)
	case ActionSetDevice:
		device, err := a.idMap.GetDevice(action.DeviceID)
		if err != nil {
			return false, err
		}
		a.device = device
		return true, nil
	case ActionI2CWriteByte:
		return executeWriteByte(a, action)
	case ActionI2CWriteBytes:
		return executeWriteBytes(a, action)
	case ActionI2CWriteBit:
		return executeWriteBit(a, action)
	case ActionI2CCompareByte:
		return executeCompareByte(a, action)
	case ActionI2CCompareBytes:
		return executeCompareBytes(a, action)
	case ActionI2CCompareBit:
		return executeCompareBit(a, action)
	case ActionPMBusReadSensor:
		return executeReadSensor(a, action)
	case ActionPMBusWriteVoutCommand:
		return executeWriteVoutCommand(a, action)
	case ActionComparePresence:
		return executeComparePresence(a, action)
	case ActionCompareVPD:
		return executeCompareVPD(a, action)
	case ActionLogPhaseFault:
		a.phaseFaults[action.FaultType] = true
		return true, nil
	default:
		return false, fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// executeAnd runs every nested action and returns true only if all returned
// true. All actions execute regardless of earlier results because register
// reads may have required side effects.
func executeAnd(a *ActionContext, action *Action) (bool, error) {
	result := true
	for i := range action.Actions {
		r, err := executeAction(a, &action.Actions[i])
		if err != nil {
			return false, err
		}
		if !r {
			result = false
		}
	}
	a.lastResult = result
	return result, nil
}

func executeOr(a *ActionContext, action *Action) (bool, error) {
	result := false
	for i := range action.Actions {
		r, err := executeAction(a, &action.Actions[i])
		if err != nil {
			return false, err
		}
		if r {
			result = true
		}
	}
	a.lastResult = result
	return result, nil
}

// executeIf evaluates the condition, then runs the then or else branch.
// Returns the result of the branch executed; false if the condition was
// false and no else branch exists.
func executeIf(a *ActionContext, action *Action) (bool, error) {
	condition, err := executeAction(a, action.Condition)
	if err != nil {
		return false, err
	}
	if condition {
		return executeActions(a, action.Then)
	}
	if len(action.Else) > 0 {
		return executeActions(a, action.Else)
	}
	return false, nil
}

// executeRunRule runs the named rule's action sequence in the current
// context. The depth counter guards against rule cycles.
func executeRunRule(a *ActionContext, action *Action) (bool, error) {
	if a.ruleDepth >= maxRuleDepth {
		return false, fmt.Errorf("maximum rule depth %d exceeded running rule %q",
			maxRuleDepth, action.RuleID)
	}
	rule, err := a.idMap.GetRule(action.RuleID)
	if err != nil {
		return false, err
	}
	a.ruleDepth++
	defer func() { a.ruleDepth-- }()
	return executeActions(a, rule.Actions)
}

func (a *ActionContext) currentI2C() (i2c.Device, error) {
	if a.device == nil {
		return nil, fmt.Errorf("no current device in execution context")
	}
	dev := a.device.i2c
	if dev == nil {
		return nil, fmt.Errorf("device %s has no bus attachment", a.device.ID())
	}
	return dev, nil
}

func executeWriteByte(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	value := action.Value
	if action.Mask != 0 {
		current, err := dev.ReadByte(a.ctx, action.Register)
		if err != nil {
			return false, err
		}
		value = (current &^ action.Mask) | (action.Value & action.Mask)
	}
	if err := dev.WriteByte(a.ctx, action.Register, value); err != nil {
		return false, err
	}
	return true, nil
}

func executeWriteBytes(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	values := action.Values
	if len(action.Masks) > 0 {
		if len(action.Masks) != len(action.Values) {
			return false, fmt.Errorf("i2c_write_bytes: %d masks for %d values",
				len(action.Masks), len(action.Values))
		}
		current, err := dev.ReadBytes(a.ctx, action.Register, len(values))
		if err != nil {
			return false, err
		}
		merged := make([]byte, len(values))
		for i := range values {
			merged[i] = (current[i] &^ action.Masks[i]) | (values[i] & action.Masks[i])
		}
		values = merged
	}
	if err := dev.WriteBytes(a.ctx, action.Register, values); err != nil {
		return false, err
	}
	return true, nil
}

func executeWriteBit(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	current, err := dev.ReadByte(a.ctx, action.Register)
	if err != nil {
		return false, err
	}
	bit := uint8(1) << action.Position
	value := current &^ bit
	if action.Value != 0 {
		value |= bit
	}
	if err := dev.WriteByte(a.ctx, action.Register, value); err != nil {
		return false, err
	}
	return true, nil
}

func executeCompareByte(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	actual, err := dev.ReadByte(a.ctx, action.Register)
	if err != nil {
		return false, err
	}
	mask := action.Mask
	if mask == 0 {
		mask = 0xFF
	}
	return actual&mask == action.Value&mask, nil
}

func executeCompareBytes(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	actual, err := dev.ReadBytes(a.ctx, action.Register, len(action.Values))
	if err != nil {
		return false, err
	}
	for i, expected := range action.Values {
		mask := uint8(0xFF)
		if len(action.Masks) > i {
			mask = action.Masks[i]
		}
		if actual[i]&mask != expected&mask {
			return false, nil
		}
	}
	return true, nil
}

func executeCompareBit(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	actual, err := dev.ReadByte(a.ctx, action.Register)
	if err != nil {
		return false, err
	}
	bit := (actual >> action.Position) & 1
	return bit == action.Value&1, nil
}

// executeReadSensor reads one PMBus sensor word from the current device,
// decodes it, and stores the value on the current rail.
func executeReadSensor(a *ActionContext, action *Action) (bool, error) {
	if a.rail == nil {
		return false, fmt.Errorf("pmbus_read_sensor outside rail execution")
	}
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	raw, err := readWord(a, dev, action.Register)
	if err != nil {
		return false, err
	}

	var value float64
	switch action.Format {
	case FormatLinear11:
		value = pmbus.ParseLinear11(raw)
	case FormatLinear16:
		exponent, err := voutExponent(a, dev, action)
		if err != nil {
			return false, err
		}
		value = pmbus.ParseLinear16(raw, exponent)
	default:
		return false, fmt.Errorf("unknown sensor format %q", action.Format)
	}

	a.rail.setSensor(action.Sensor, value)
	return true, nil
}

// executeWriteVoutCommand writes the VOUT_COMMAND register that sets a
// rail's output voltage, optionally verifying the write by reading it back.
func executeWriteVoutCommand(a *ActionContext, action *Action) (bool, error) {
	dev, err := a.currentI2C()
	if err != nil {
		return false, err
	}
	volts := action.Volts
	if volts == nil {
		volts = a.volts
	}
	if volts == nil {
		return false, fmt.Errorf("pmbus_write_vout_command: no volts value specified")
	}
	exponent, err := voutExponent(a, dev, action)
	if err != nil {
		return false, err
	}
	mantissa, err := pmbus.FormatLinear16(*volts, exponent)
	if err != nil {
		return false, err
	}
	if err := writeWord(a, dev, pmbus.CmdVoutCommand, mantissa); err != nil {
		return false, err
	}
	if action.IsVerified {
		readBack, err := readWord(a, dev, pmbus.CmdVoutCommand)
		if err != nil {
			return false, err
		}
		if readBack != mantissa {
			return false, &WriteVerificationError{
				DeviceID: a.device.ID(),
				Register: pmbus.CmdVoutCommand,
				Wrote:    mantissa,
				Read:     readBack,
			}
		}
	}
	return true, nil
}

func executeComparePresence(a *ActionContext, action *Action) (bool, error) {
	deviceID := action.DeviceID
	if deviceID == "" {
		if a.device == nil {
			return false, fmt.Errorf("compare_presence outside device execution")
		}
		deviceID = a.device.ID()
	}
	present, err := a.services.Presence.IsPresent(deviceID)
	if err != nil {
		return false, fmt.Errorf("presence check for %s failed: %w", deviceID, err)
	}
	return present == action.Present, nil
}

func executeCompareVPD(a *ActionContext, action *Action) (bool, error) {
	deviceID := action.DeviceID
	if deviceID == "" {
		if a.device == nil {
			return false, fmt.Errorf("compare_vpd outside device execution")
		}
		deviceID = a.device.ID()
	}
	value, err := a.services.VPD.Value(deviceID, action.Keyword)
	if err != nil {
		return false, fmt.Errorf("VPD read for %s failed: %w", deviceID, err)
	}
	return value == action.VPDValue, nil
}

// readWord reads a little-endian PMBus word.
func readWord(a *ActionContext, dev i2c.Device, register uint8) (uint16, error) {
	data, err := dev.ReadBytes(a.ctx, register, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

func writeWord(a *ActionContext, dev i2c.Device, register uint8, value uint16) error {
	return dev.WriteBytes(a.ctx, register, []byte{byte(value), byte(value >> 8)})
}

// voutExponent resolves the LINEAR16 exponent: the action's own value when
// specified, otherwise the chip's VOUT_MODE register.
func voutExponent(a *ActionContext, dev i2c.Device, action *Action) (int8, error) {
	if action.Exponent != nil {
		return *action.Exponent, nil
	}
	voutMode, err := dev.ReadByte(a.ctx, pmbus.CmdVoutMode)
	if err != nil {
		return 0, err
	}
	return pmbus.VoutModeExponent(voutMode)
}
