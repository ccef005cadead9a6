package regulators

// ActionKind enumerates the closed instruction set of the execution engine.
// Adding a kind means adding a case to executeAction; the engine rejects
// anything it does not recognize.
type ActionKind string

const (
	// Logical combinators over nested action lists.
	ActionAnd ActionKind = "and"
	ActionOr  ActionKind = "or"
	ActionNot ActionKind = "not"
	ActionIf  ActionKind = "if"

	// Cross-reference operations resolved through the IDMap.
	ActionRunRule   ActionKind = "run_rule"
	ActionSetDevice ActionKind = "set_device"

	// Register operations against the current device.
	ActionI2CWriteByte    ActionKind = "i2c_write_byte"
	ActionI2CWriteBytes   ActionKind = "i2c_write_bytes"
	ActionI2CWriteBit     ActionKind = "i2c_write_bit"
	ActionI2CCompareByte  ActionKind = "i2c_compare_byte"
	ActionI2CCompareBytes ActionKind = "i2c_compare_bytes"
	ActionI2CCompareBit   ActionKind = "i2c_compare_bit"

	// PMBus operations.
	ActionPMBusReadSensor       ActionKind = "pmbus_read_sensor"
	ActionPMBusWriteVoutCommand ActionKind = "pmbus_write_vout_command"

	// Compares against external state and fault logging.
	ActionComparePresence ActionKind = "compare_presence"
	ActionCompareVPD      ActionKind = "compare_vpd"
	ActionLogPhaseFault   ActionKind = "log_phase_fault"
)

// SensorType identifies one sensor a rail produces.
type SensorType string

const (
	SensorVout     SensorType = "vout"
	SensorVoutPeak SensorType = "vout_peak"
	SensorIout     SensorType = "iout"
	SensorIoutPeak SensorType = "iout_peak"
	SensorTemp     SensorType = "temperature"
	SensorTempPeak SensorType = "temperature_peak"
	SensorPout     SensorType = "pout"
	SensorVin      SensorType = "vin"
	SensorIin      SensorType = "iin"
)

// SensorFormat is the wire encoding of a PMBus sensor value.
type SensorFormat string

const (
	FormatLinear11 SensorFormat = "linear_11"
	FormatLinear16 SensorFormat = "linear_16"
)

// PhaseFaultType classifies a redundant phase fault. An n+1 fault means
// redundancy was lost; an n fault means the rail can no longer carry its
// rated load.
type PhaseFaultType string

const (
	PhaseFaultN        PhaseFaultType = "n"
	PhaseFaultNPlusOne PhaseFaultType = "n+1"
)

// Action is one operation in a configuration, a tagged variant over Kind.
// Only the fields relevant to the kind are populated; the parser guarantees
// that before an action ever reaches the engine.
type Action struct {
	Kind ActionKind

	// and, or: nested actions; if: condition/then/else branches.
	Actions   []Action
	Inner     *Action
	Condition *Action
	Then      []Action
	Else      []Action

	// run_rule, set_device.
	RuleID   string
	DeviceID string

	// Register operations. Mask selects the bits a write modifies or a
	// compare examines; a zero mask means all bits. Position addresses a
	// single bit (0 = LSB).
	Register uint8
	Value    uint8
	Values   []byte
	Masks    []byte
	Mask     uint8
	Position uint8

	// pmbus_read_sensor and pmbus_write_vout_command. A nil Exponent means
	// read the exponent from VOUT_MODE. A nil Volts means use the volts
	// value of the enclosing configuration.
	Sensor     SensorType
	Format     SensorFormat
	Exponent   *int8
	Volts      *float64
	IsVerified bool

	// compare_presence, compare_vpd.
	Present  bool
	Keyword  string
	VPDValue string

	// log_phase_fault.
	FaultType PhaseFaultType
}

// Rule is a named, reusable action sequence invoked by run_rule.
type Rule struct {
	ID      string
	Actions []Action
}
