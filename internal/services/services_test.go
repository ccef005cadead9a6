package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticPresenceDefaultsToPresent(t *testing.T) {
	presence := NewStaticPresence(map[string]bool{"optional_card": false})

	if got, _ := presence.IsPresent("optional_card"); got {
		t.Error("listed absent device reported present")
	}
	if got, _ := presence.IsPresent("unlisted"); !got {
		t.Error("unlisted device should default to present")
	}

	presence.Set("optional_card", true)
	if got, _ := presence.IsPresent("optional_card"); !got {
		t.Error("Set did not update presence")
	}
}

func TestFilePowerState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgood")
	state := &FilePowerState{Path: path}

	if _, err := state.IsPoweredOn(); err == nil {
		t.Error("missing file should return an error")
	}

	os.WriteFile(path, []byte("1\n"), 0o644)
	if on, err := state.IsPoweredOn(); err != nil || !on {
		t.Errorf("IsPoweredOn = (%v, %v), want (true, nil)", on, err)
	}

	os.WriteFile(path, []byte("0\n"), 0o644)
	if on, err := state.IsPoweredOn(); err != nil || on {
		t.Errorf("IsPoweredOn = (%v, %v), want (false, nil)", on, err)
	}
}

func TestStaticVPD(t *testing.T) {
	vpd := NewStaticVPD(map[string]string{"vdd_regulator/CCIN": "2B2D"})

	value, err := vpd.Value("vdd_regulator", "CCIN")
	if err != nil || value != "2B2D" {
		t.Errorf("Value = (%q, %v), want (2B2D, nil)", value, err)
	}
	if _, err := vpd.Value("vdd_regulator", "PN"); err == nil {
		t.Error("missing keyword should return an error")
	}

	vpd.Set("vdd_regulator", "PN", "01XY123")
	if value, _ := vpd.Value("vdd_regulator", "PN"); value != "01XY123" {
		t.Errorf("Value after Set = %q", value)
	}
}
