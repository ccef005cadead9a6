// Package types defines the on-disk JSON structure of the regulators
// configuration file. The file describes the chassis in the system, the
// regulator devices within them, their rails, and the action sequences that
// configure and monitor them. Register addresses and values are written as
// hex strings ("0x7C") the way hardware documentation spells them.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ConfigFile struct {
	Comments []string     `json:"comments,omitempty"`
	Rules    []RuleDef    `json:"rules,omitempty"`
	Chassis  []ChassisDef `json:"chassis"`
}

// RuleDef is a named, reusable action sequence referenced by run_rule.
type RuleDef struct {
	ID      string      `json:"id"`
	Actions []ActionDef `json:"actions"`
}

type ChassisDef struct {
	Number  int         `json:"number"`
	Devices []DeviceDef `json:"devices,omitempty"`
}

type DeviceDef struct {
	ID                  string            `json:"id"`
	I2CInterface        *I2CInterfaceDef  `json:"i2c_interface,omitempty"`
	PresenceDetection   *PresenceDef      `json:"presence_detection,omitempty"`
	Configuration       *ConfigurationDef `json:"configuration,omitempty"`
	PhaseFaultDetection *PhaseFaultDef    `json:"phase_fault_detection,omitempty"`
	Rails               []RailDef         `json:"rails,omitempty"`
}

type I2CInterfaceDef struct {
	Bus     int     `json:"bus"`
	Address HexWord `json:"address"`
}

type ConfigurationDef struct {
	Volts   *float64    `json:"volts,omitempty"`
	Actions []ActionDef `json:"actions"`
}

type PresenceDef struct {
	Actions []ActionDef `json:"actions"`
}

type PhaseFaultDef struct {
	Device  string      `json:"device,omitempty"`
	Actions []ActionDef `json:"actions"`
}

type RailDef struct {
	ID               string            `json:"id"`
	Configuration    *ConfigurationDef `json:"configuration,omitempty"`
	SensorMonitoring *MonitoringDef    `json:"sensor_monitoring,omitempty"`
}

type MonitoringDef struct {
	Actions []ActionDef `json:"actions"`
}

// ActionDef is one action in a sequence. Type selects the kind; the other
// fields are kind specific and validated by the parser.
type ActionDef struct {
	Type string `json:"type"`

	// and, or, not, if
	Actions   []ActionDef `json:"actions,omitempty"`
	Action    *ActionDef  `json:"action,omitempty"`
	Condition *ActionDef  `json:"condition,omitempty"`
	Then      []ActionDef `json:"then,omitempty"`
	Else      []ActionDef `json:"else,omitempty"`

	// run_rule; set_device / compare_presence / compare_vpd target
	Rule   string `json:"rule,omitempty"`
	Device string `json:"device,omitempty"`

	// register operations
	Register *HexByte  `json:"register,omitempty"`
	Value    *HexByte  `json:"value,omitempty"`
	Values   []HexByte `json:"values,omitempty"`
	Masks    []HexByte `json:"masks,omitempty"`
	Mask     *HexByte  `json:"mask,omitempty"`
	Position *uint8    `json:"position,omitempty"`

	// pmbus_read_sensor, pmbus_write_vout_command
	SensorType string   `json:"sensor_type,omitempty"`
	Command    *HexByte `json:"command,omitempty"`
	Format     string   `json:"format,omitempty"`
	Exponent   *int8    `json:"exponent,omitempty"`
	Volts      *float64 `json:"volts,omitempty"`
	IsVerified bool     `json:"is_verified,omitempty"`

	// compare_presence, compare_vpd
	Present  *bool  `json:"present,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Expected string `json:"expected,omitempty"`

	// log_phase_fault
	FaultType string `json:"fault_type,omitempty"`
}

// HexByte is an 8-bit value that accepts both JSON numbers and hex strings.
type HexByte uint8

func (h *HexByte) UnmarshalJSON(data []byte) error {
	value, err := parseHex(data, 8)
	if err != nil {
		return err
	}
	*h = HexByte(value)
	return nil
}

func (h HexByte) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%02X", uint8(h)))
}

// HexWord is a 16-bit value that accepts both JSON numbers and hex strings,
// used for I2C addresses.
type HexWord uint16

func (h *HexWord) UnmarshalJSON(data []byte) error {
	value, err := parseHex(data, 16)
	if err != nil {
		return err
	}
	*h = HexWord(value)
	return nil
}

func (h HexWord) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%02X", uint16(h)))
}

func parseHex(data []byte, bits int) (uint64, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case float64:
		value := uint64(v)
		if v < 0 || v != float64(value) || value >= 1<<bits {
			return 0, fmt.Errorf("value %v out of range for %d bits", v, bits)
		}
		return value, nil
	case string:
		s := strings.TrimPrefix(strings.ToLower(v), "0x")
		value, err := strconv.ParseUint(s, 16, bits)
		if err != nil {
			return 0, fmt.Errorf("invalid hex value %q: %w", v, err)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("invalid numeric value %v (%T)", raw, raw)
	}
}
