// Package pmbus provides the PMBus command codes and numeric formats the
// regulator actions need. Values on the wire use the LINEAR11 and LINEAR16
// encodings from the PMBus specification, part II.
package pmbus

import "fmt"

// PMBus command codes used by the action set.
const (
	CmdVoutMode      uint8 = 0x20
	CmdVoutCommand   uint8 = 0x21
	CmdStatusWord    uint8 = 0x79
	CmdStatusVout    uint8 = 0x7A
	CmdStatusIout    uint8 = 0x7B
	CmdReadVin       uint8 = 0x88
	CmdReadIin       uint8 = 0x89
	CmdReadVout      uint8 = 0x8B
	CmdReadIout      uint8 = 0x8C
	CmdReadTemp1     uint8 = 0x8D
	CmdReadTemp2     uint8 = 0x8E
	CmdReadFanSpeed1 uint8 = 0x90
	CmdReadPout      uint8 = 0x96
	CmdReadPin       uint8 = 0x97
)

// ParseLinear11 decodes a LINEAR11 value: 5-bit signed exponent in bits
// 15:11, 11-bit signed mantissa in bits 10:0.
func ParseLinear11(raw uint16) float64 {
	exponent := int8(raw>>11) & 0x1F
	if exponent > 0x0F {
		exponent -= 0x20
	}
	mantissa := int16(raw & 0x07FF)
	if mantissa > 0x03FF {
		mantissa -= 0x0800
	}
	return float64(mantissa) * pow2(exponent)
}

// ParseLinear16 decodes a LINEAR16 value: 16-bit unsigned mantissa with a
// signed exponent supplied separately, normally from VOUT_MODE.
func ParseLinear16(raw uint16, exponent int8) float64 {
	return float64(raw) * pow2(exponent)
}

// FormatLinear16 encodes volts as a LINEAR16 mantissa for the given
// exponent. Returns an error if the mantissa does not fit in 16 bits.
func FormatLinear16(volts float64, exponent int8) (uint16, error) {
	mantissa := volts / pow2(exponent)
	if mantissa < 0 || mantissa > 0xFFFF {
		return 0, fmt.Errorf("volts value %g not representable with exponent %d", volts, exponent)
	}
	return uint16(mantissa + 0.5), nil
}

// VoutModeExponent extracts the LINEAR16 exponent from a VOUT_MODE byte.
// The low 5 bits hold a two's complement exponent; the upper 3 bits must be
// 000 for linear mode.
func VoutModeExponent(voutMode uint8) (int8, error) {
	if voutMode&0xE0 != 0 {
		return 0, fmt.Errorf("VOUT_MODE 0x%02X is not linear format", voutMode)
	}
	exponent := int8(voutMode & 0x1F)
	if exponent > 0x0F {
		exponent -= 0x20
	}
	return exponent, nil
}

func pow2(exponent int8) float64 {
	value := 1.0
	if exponent >= 0 {
		for i := int8(0); i < exponent; i++ {
			value *= 2
		}
		return value
	}
	for i := exponent; i < 0; i++ {
		value /= 2
	}
	return value
}
