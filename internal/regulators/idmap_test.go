package regulators

import (
	"errors"
	"testing"
)

func TestIDMapDeviceLookup(t *testing.T) {
	idMap := NewIDMap()
	device := mustDevice("vdd_reg", nil, nil)

	if err := idMap.AddDevice(device); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	found, err := idMap.GetDevice("vdd_reg")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if found != device {
		t.Error("GetDevice returned a different object than registered")
	}

	_, err = idMap.GetDevice("missing")
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected LookupError, got %v", err)
	}
}

func TestIDMapDuplicateDevice(t *testing.T) {
	idMap := NewIDMap()
	if err := idMap.AddDevice(mustDevice("dup", nil, nil)); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	err := idMap.AddDevice(mustDevice("dup", nil, nil))
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError for duplicate device ID, got %v", err)
	}
}

func TestIDMapRailAndRule(t *testing.T) {
	idMap := NewIDMap()
	rail := mustRail("vdd1", nil, nil)
	rule := &Rule{ID: "set_voltage"}

	if err := idMap.AddRail(rail); err != nil {
		t.Fatalf("AddRail: %v", err)
	}
	if err := idMap.AddRule(rule); err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	foundRail, err := idMap.GetRail("vdd1")
	if err != nil || foundRail != rail {
		t.Errorf("GetRail = (%v, %v), want registered rail", foundRail, err)
	}
	foundRule, err := idMap.GetRule("set_voltage")
	if err != nil || foundRule != rule {
		t.Errorf("GetRule = (%v, %v), want registered rule", foundRule, err)
	}

	if err := idMap.AddRail(mustRail("vdd1", nil, nil)); err == nil {
		t.Error("expected error for duplicate rail ID")
	}
	if err := idMap.AddRule(&Rule{ID: "set_voltage"}); err == nil {
		t.Error("expected error for duplicate rule ID")
	}
}

func TestSystemPopulatesIDMap(t *testing.T) {
	rail := mustRail("vdd1", nil, nil)
	device := mustDevice("vdd1_reg", nil, nil, rail)
	rule := &Rule{ID: "rule1"}
	system := mustSystem([]*Rule{rule}, mustChassis(1, device))

	if _, err := system.IDMap().GetDevice("vdd1_reg"); err != nil {
		t.Errorf("device not registered: %v", err)
	}
	if _, err := system.IDMap().GetRail("vdd1"); err != nil {
		t.Errorf("rail not registered: %v", err)
	}
	if _, err := system.IDMap().GetRule("rule1"); err != nil {
		t.Errorf("rule not registered: %v", err)
	}
}

func TestSystemDuplicateIDsAcrossChassis(t *testing.T) {
	c1 := mustChassis(1, mustDevice("reg", nil, nil))
	c2 := mustChassis(2, mustDevice("reg", nil, nil))

	_, err := NewSystem(nil, []*Chassis{c1, c2})
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError for duplicate device ID across chassis, got %v", err)
	}
}
