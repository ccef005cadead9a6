package configfile

import (
	"fmt"

	"github.com/smccarney/phosphor-power/internal/i2c"
	"github.com/smccarney/phosphor-power/internal/regulators"
	"github.com/smccarney/phosphor-power/internal/types"
)

// BusOpener opens the bus attachment for one device. The daemon passes
// i2c.Open; the validate command and tests pass nil, which leaves devices
// without a bus attachment.
type BusOpener func(bus int, address uint16) (i2c.Device, error)

// Parse builds the System hierarchy and its IDMap from a validated config
// file. Any defect is a build error: the caller must not run with a
// partially built hierarchy.
func Parse(config *types.ConfigFile, openBus BusOpener) (*regulators.System, error) {
	rules := make([]*regulators.Rule, 0, len(config.Rules))
	for i := range config.Rules {
		rule, err := parseRule(&config.Rules[i])
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}

	chassis := make([]*regulators.Chassis, 0, len(config.Chassis))
	for i := range config.Chassis {
		ch, err := parseChassis(&config.Chassis[i], openBus)
		if err != nil {
			return nil, fmt.Errorf("chassis[%d]: %w", i, err)
		}
		chassis = append(chassis, ch)
	}

	return regulators.NewSystem(rules, chassis)
}

func parseRule(def *types.RuleDef) (*regulators.Rule, error) {
	actions, err := parseActions(def.Actions)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", def.ID, err)
	}
	return &regulators.Rule{ID: def.ID, Actions: actions}, nil
}

func parseChassis(def *types.ChassisDef, openBus BusOpener) (*regulators.Chassis, error) {
	devices := make([]*regulators.Device, 0, len(def.Devices))
	for i := range def.Devices {
		device, err := parseDevice(&def.Devices[i], openBus)
		if err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		devices = append(devices, device)
	}
	return regulators.NewChassis(def.Number, devices)
}

func parseDevice(def *types.DeviceDef, openBus BusOpener) (*regulators.Device, error) {
	var bus i2c.Device
	if def.I2CInterface != nil && openBus != nil {
		opened, err := openBus(def.I2CInterface.Bus, uint16(def.I2CInterface.Address))
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", def.ID, err)
		}
		bus = opened
	}

	var presence *regulators.PresenceDetection
	if def.PresenceDetection != nil {
		actions, err := parseActions(def.PresenceDetection.Actions)
		if err != nil {
			return nil, fmt.Errorf("device %q presence_detection: %w", def.ID, err)
		}
		presence = regulators.NewPresenceDetection(actions)
	}

	configuration, err := parseConfiguration(def.ID, def.Configuration)
	if err != nil {
		return nil, fmt.Errorf("device %q configuration: %w", def.ID, err)
	}

	var phaseFaults *regulators.PhaseFaultDetection
	if def.PhaseFaultDetection != nil {
		actions, err := parseActions(def.PhaseFaultDetection.Actions)
		if err != nil {
			return nil, fmt.Errorf("device %q phase_fault_detection: %w", def.ID, err)
		}
		phaseFaults = regulators.NewPhaseFaultDetection(actions, def.PhaseFaultDetection.Device)
	}

	rails := make([]*regulators.Rail, 0, len(def.Rails))
	for i := range def.Rails {
		rail, err := parseRail(&def.Rails[i])
		if err != nil {
			return nil, fmt.Errorf("device %q rails[%d]: %w", def.ID, i, err)
		}
		rails = append(rails, rail)
	}

	return regulators.NewDevice(def.ID, bus, presence, configuration, phaseFaults, rails)
}

func parseRail(def *types.RailDef) (*regulators.Rail, error) {
	configuration, err := parseConfiguration(def.ID, def.Configuration)
	if err != nil {
		return nil, fmt.Errorf("rail %q configuration: %w", def.ID, err)
	}

	var monitoring *regulators.SensorMonitoring
	if def.SensorMonitoring != nil {
		actions, err := parseActions(def.SensorMonitoring.Actions)
		if err != nil {
			return nil, fmt.Errorf("rail %q sensor_monitoring: %w", def.ID, err)
		}
		monitoring = regulators.NewSensorMonitoring(actions)
	}

	return regulators.NewRail(def.ID, configuration, monitoring)
}

func parseConfiguration(owner string, def *types.ConfigurationDef) (*regulators.Configuration, error) {
	if def == nil {
		return nil, nil
	}
	actions, err := parseActions(def.Actions)
	if err != nil {
		return nil, err
	}
	return regulators.NewConfiguration(owner, def.Volts, actions), nil
}

func parseActions(defs []types.ActionDef) ([]regulators.Action, error) {
	actions := make([]regulators.Action, 0, len(defs))
	for i := range defs {
		action, err := parseAction(&defs[i])
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// parseAction validates the kind-specific parameters of one action and
// produces the engine's tagged variant.
func parseAction(def *types.ActionDef) (regulators.Action, error) {
	var zero regulators.Action

	switch regulators.ActionKind(def.Type) {
	case regulators.ActionAnd, regulators.ActionOr:
		if len(def.Actions) < 2 {
			return zero, fmt.Errorf("%s: requires at least 2 nested actions", def.Type)
		}
		nested, err := parseActions(def.Actions)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", def.Type, err)
		}
		return regulators.Action{Kind: regulators.ActionKind(def.Type), Actions: nested}, nil

	case regulators.ActionNot:
		if def.Action == nil {
			return zero, fmt.Errorf("not: missing nested action")
		}
		inner, err := parseAction(def.Action)
		if err != nil {
			return zero, fmt.Errorf("not: %w", err)
		}
		return regulators.Action{Kind: regulators.ActionNot, Inner: &inner}, nil

	case regulators.ActionIf:
		if def.Condition == nil {
			return zero, fmt.Errorf("if: missing condition")
		}
		if len(def.Then) == 0 {
			return zero, fmt.Errorf("if: missing then actions")
		}
		condition, err := parseAction(def.Condition)
		if err != nil {
			return zero, fmt.Errorf("if condition: %w", err)
		}
		then, err := parseActions(def.Then)
		if err != nil {
			return zero, fmt.Errorf("if then: %w", err)
		}
		elseActions, err := parseActions(def.Else)
		if err != nil {
			return zero, fmt.Errorf("if else: %w", err)
		}
		return regulators.Action{
			Kind:      regulators.ActionIf,
			Condition: &condition,
			Then:      then,
			Else:      elseActions,
		}, nil

	case regulators.ActionRunRule:
		if def.Rule == "" {
			return zero, fmt.Errorf("run_rule: missing rule ID")
		}
		return regulators.Action{Kind: regulators.ActionRunRule, RuleID: def.Rule}, nil

	case regulators.ActionSetDevice:
		if def.Device == "" {
			return zero, fmt.Errorf("set_device: missing device ID")
		}
		return regulators.Action{Kind: regulators.ActionSetDevice, DeviceID: def.Device}, nil

	case regulators.ActionI2CWriteByte, regulators.ActionI2CCompareByte:
		if def.Register == nil || def.Value == nil {
			return zero, fmt.Errorf("%s: register and value are required", def.Type)
		}
		action := regulators.Action{
			Kind:     regulators.ActionKind(def.Type),
			Register: uint8(*def.Register),
			Value:    uint8(*def.Value),
		}
		if def.Mask != nil {
			action.Mask = uint8(*def.Mask)
		}
		return action, nil

	case regulators.ActionI2CWriteBytes, regulators.ActionI2CCompareBytes:
		if def.Register == nil || len(def.Values) == 0 {
			return zero, fmt.Errorf("%s: register and values are required", def.Type)
		}
		if len(def.Masks) > 0 && len(def.Masks) != len(def.Values) {
			return zero, fmt.Errorf("%s: %d masks for %d values", def.Type, len(def.Masks), len(def.Values))
		}
		return regulators.Action{
			Kind:     regulators.ActionKind(def.Type),
			Register: uint8(*def.Register),
			Values:   hexBytes(def.Values),
			Masks:    hexBytes(def.Masks),
		}, nil

	case regulators.ActionI2CWriteBit, regulators.ActionI2CCompareBit:
		if def.Register == nil || def.Position == nil || def.Value == nil {
			return zero, fmt.Errorf("%s: register, position, and value are required", def.Type)
		}
		if *def.Value > 1 {
			return zero, fmt.Errorf("%s: bit value must be 0 or 1", def.Type)
		}
		return regulators.Action{
			Kind:     regulators.ActionKind(def.Type),
			Register: uint8(*def.Register),
			Position: *def.Position,
			Value:    uint8(*def.Value),
		}, nil

	case regulators.ActionPMBusReadSensor:
		if def.SensorType == "" || def.Command == nil || def.Format == "" {
			return zero, fmt.Errorf("pmbus_read_sensor: sensor_type, command, and format are required")
		}
		return regulators.Action{
			Kind:     regulators.ActionPMBusReadSensor,
			Sensor:   regulators.SensorType(def.SensorType),
			Register: uint8(*def.Command),
			Format:   regulators.SensorFormat(def.Format),
			Exponent: def.Exponent,
		}, nil

	case regulators.ActionPMBusWriteVoutCommand:
		if def.Format != string(regulators.FormatLinear16) {
			return zero, fmt.Errorf("pmbus_write_vout_command: format must be linear_16")
		}
		return regulators.Action{
			Kind:       regulators.ActionPMBusWriteVoutCommand,
			Format:     regulators.FormatLinear16,
			Exponent:   def.Exponent,
			Volts:      def.Volts,
			IsVerified: def.IsVerified,
		}, nil

	case regulators.ActionComparePresence:
		if def.Present == nil {
			return zero, fmt.Errorf("compare_presence: present is required")
		}
		return regulators.Action{
			Kind:     regulators.ActionComparePresence,
			DeviceID: def.Device,
			Present:  *def.Present,
		}, nil

	case regulators.ActionCompareVPD:
		if def.Keyword == "" {
			return zero, fmt.Errorf("compare_vpd: keyword is required")
		}
		return regulators.Action{
			Kind:     regulators.ActionCompareVPD,
			DeviceID: def.Device,
			Keyword:  def.Keyword,
			VPDValue: def.Expected,
		}, nil

	case regulators.ActionLogPhaseFault:
		faultType := regulators.PhaseFaultType(def.FaultType)
		if faultType != regulators.PhaseFaultN && faultType != regulators.PhaseFaultNPlusOne {
			return zero, fmt.Errorf("log_phase_fault: fault_type must be n or n+1")
		}
		return regulators.Action{Kind: regulators.ActionLogPhaseFault, FaultType: faultType}, nil

	default:
		return zero, fmt.Errorf("unknown action type %q", def.Type)
	}
}

func hexBytes(values []types.HexByte) []byte {
	if len(values) == 0 {
		return nil
	}
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}
