package types

import (
	"encoding/json"
	"testing"
)

func TestHexByteUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    HexByte
		wantErr bool
	}{
		{"hex string", `"0x7C"`, 0x7C, false},
		{"uppercase prefix", `"0XFF"`, 0xFF, false},
		{"number", `124`, 124, false},
		{"zero", `"0x00"`, 0, false},
		{"too large", `256`, 0, true},
		{"negative", `-1`, 0, true},
		{"fractional", `1.5`, 0, true},
		{"not hex", `"0xZZ"`, 0, true},
		{"bool", `true`, 0, true},
	}
	for _, tt := range tests {
		var h HexByte
		err := json.Unmarshal([]byte(tt.input), &h)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: unmarshal %s succeeded, want error", tt.name, tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unmarshal %s: %v", tt.name, tt.input, err)
			continue
		}
		if h != tt.want {
			t.Errorf("%s: got 0x%02X, want 0x%02X", tt.name, uint8(h), uint8(tt.want))
		}
	}
}

func TestHexWordUnmarshal(t *testing.T) {
	var h HexWord
	if err := json.Unmarshal([]byte(`"0x70"`), &h); err != nil || h != 0x70 {
		t.Errorf("got (0x%04X, %v), want 0x0070", uint16(h), err)
	}
	if err := json.Unmarshal([]byte(`"0xFFFF"`), &h); err != nil || h != 0xFFFF {
		t.Errorf("got (0x%04X, %v), want 0xFFFF", uint16(h), err)
	}
	if err := json.Unmarshal([]byte(`65536`), &h); err == nil {
		t.Error("accepted value too large for 16 bits")
	}
}

func TestHexByteMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(HexByte(0x7C))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"0x7C"` {
		t.Errorf("marshal = %s, want \"0x7C\"", data)
	}
	var back HexByte
	if err := json.Unmarshal(data, &back); err != nil || back != 0x7C {
		t.Errorf("round trip = (0x%02X, %v)", uint8(back), err)
	}
}
