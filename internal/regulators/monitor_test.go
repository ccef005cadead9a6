package regulators

import (
	"context"
	"testing"
)

func readSensorAction(sensor SensorType, register uint8) Action {
	return Action{Kind: ActionPMBusReadSensor, Sensor: sensor, Register: register,
		Format: FormatLinear11}
}

func TestMonitorReadsSensorsAcrossRails(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x8C, 0x64, 0xE8) // 12.5 in LINEAR11
	bus.set(0x8D, 0x32, 0x08) // exponent 1, mantissa 50 -> 100

	rail1 := mustRail("vdd1", nil, NewSensorMonitoring(
		[]Action{readSensorAction(SensorIout, 0x8C)}))
	rail2 := mustRail("vdd2", nil, NewSensorMonitoring(
		[]Action{readSensorAction(SensorTemp, 0x8D)}))
	device := mustDevice("dev", bus, nil, rail1, rail2)
	system := mustSystem(nil, mustChassis(1, device))

	system.Monitor(context.Background(), testServices())

	if got := rail1.Sensors()[SensorIout]; got != 12.5 {
		t.Errorf("rail1 iout = %v, want 12.5", got)
	}
	if got := rail2.Sensors()[SensorTemp]; got != 100 {
		t.Errorf("rail2 temperature = %v, want 100", got)
	}
}

func TestMonitorContinuesPastHardwareFault(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x8D, 0x32, 0x08)
	bus.failReads[0x8C] = true

	monitoring := NewSensorMonitoring([]Action{
		readSensorAction(SensorIout, 0x8C),
		readSensorAction(SensorTemp, 0x8D),
	})
	rail := mustRail("vdd1", nil, monitoring)
	device := mustDevice("dev", bus, nil, rail)
	system := mustSystem(nil, mustChassis(1, device))

	system.Monitor(context.Background(), testServices())

	// The failing read is tolerated but the later action still ran.
	if got := rail.Sensors()[SensorTemp]; got != 100 {
		t.Errorf("temperature = %v, want 100", got)
	}
	if faults := rail.Faults(); len(faults) != 0 {
		t.Errorf("single failing pass recorded faults: %v", faults)
	}
}

func TestMonitorFaultIsolationAcrossRails(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x8D, 0x32, 0x08)
	bus.failReads[0x8C] = true

	failing := NewSensorMonitoring([]Action{readSensorAction(SensorIout, 0x8C)})
	failing.errorCount = maxSensorErrorCount
	rail1 := mustRail("vdd1", nil, failing)
	rail2 := mustRail("vdd2", nil, NewSensorMonitoring(
		[]Action{readSensorAction(SensorTemp, 0x8D)}))
	device := mustDevice("dev", bus, nil, rail1, rail2)
	system := mustSystem(nil, mustChassis(1, device))

	system.Monitor(context.Background(), testServices())

	faults := rail1.Faults()
	if len(faults) != 1 || faults[0].Type != "hardware-transaction" {
		t.Fatalf("rail1 faults = %v, want one hardware-transaction fault", faults)
	}
	if got := rail2.Sensors()[SensorTemp]; got != 100 {
		t.Errorf("rail2 temperature = %v, want 100", got)
	}
	if len(rail2.Faults()) != 0 {
		t.Errorf("rail2 faults = %v, want none", rail2.Faults())
	}
}

func TestSensorMonitoringTransientThreshold(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.failReads[0x8C] = true

	monitoring := NewSensorMonitoring([]Action{readSensorAction(SensorIout, 0x8C)})
	rail := mustRail("vdd1", nil, monitoring)
	device := mustDevice("dev", bus, nil, rail)
	system := mustSystem(nil, mustChassis(1, device))
	svc := testServices()
	ctx := context.Background()

	for pass := 0; pass < maxSensorErrorCount; pass++ {
		system.Monitor(ctx, svc)
		if len(rail.Faults()) != 0 {
			t.Fatalf("pass %d recorded faults before the threshold", pass+1)
		}
	}

	system.Monitor(ctx, svc)
	if faults := rail.Faults(); len(faults) != 1 {
		t.Fatalf("faults after threshold = %v, want one", faults)
	}

	// A successful pass resets the history.
	delete(bus.failReads, 0x8C)
	bus.set(0x8C, 0x64, 0xE8)
	system.Monitor(ctx, svc)
	if monitoring.errorCount != 0 {
		t.Errorf("errorCount = %d after success, want 0", monitoring.errorCount)
	}
}

func TestSensorMonitoringErrorResetRequiresCleanPass(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.failReads[0x8C] = true

	monitoring := NewSensorMonitoring([]Action{readSensorAction(SensorIout, 0x8C)})
	rail := mustRail("vdd1", nil, monitoring)
	device := mustDevice("dev", bus, nil, rail)
	system := mustSystem(nil, mustChassis(1, device))
	ctx := context.Background()
	svc := testServices()

	for pass := 0; pass < 3; pass++ {
		system.Monitor(ctx, svc)
	}
	delete(bus.failReads, 0x8C)
	bus.set(0x8C, 0x64, 0xE8)
	system.Monitor(ctx, svc)
	bus.failReads[0x8C] = true
	for pass := 0; pass < maxSensorErrorCount; pass++ {
		system.Monitor(ctx, svc)
	}
	// Count restarted after the clean pass, so the threshold is not hit yet.
	if len(rail.Faults()) != 0 {
		t.Errorf("faults = %v, want none before a fresh threshold", rail.Faults())
	}
}

func TestPhaseFaultDebounce(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x7A, 0x10) // bit 4 set: phase fault asserted

	detection := NewPhaseFaultDetection([]Action{
		{
			Kind:      ActionIf,
			Condition: &Action{Kind: ActionI2CCompareBit, Register: 0x7A, Position: 4, Value: 1},
			Then:      []Action{{Kind: ActionLogPhaseFault, FaultType: PhaseFaultNPlusOne}},
		},
	}, "")
	device, err := NewDevice("dev", bus, nil, nil, detection, nil)
	if err != nil {
		t.Fatal(err)
	}
	system := mustSystem(nil, mustChassis(1, device))
	ctx := context.Background()
	svc := testServices()

	system.Monitor(ctx, svc)
	if len(device.Faults()) != 0 {
		t.Fatalf("single detection recorded a fault: %v", device.Faults())
	}

	system.Monitor(ctx, svc)
	faults := device.Faults()
	if len(faults) != 1 || faults[0].Type != "phase-fault" {
		t.Fatalf("faults = %v, want one phase-fault", faults)
	}

	// Further passes do not duplicate the record.
	system.Monitor(ctx, svc)
	if faults := device.Faults(); len(faults) != 1 || faults[0].Count != 1 {
		t.Errorf("faults after third pass = %v, want the single original", faults)
	}
}

func TestPhaseFaultCountResetsWhenClear(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x7A, 0x10)

	detection := NewPhaseFaultDetection([]Action{
		{
			Kind:      ActionIf,
			Condition: &Action{Kind: ActionI2CCompareBit, Register: 0x7A, Position: 4, Value: 1},
			Then:      []Action{{Kind: ActionLogPhaseFault, FaultType: PhaseFaultN}},
		},
	}, "")
	device, err := NewDevice("dev", bus, nil, nil, detection, nil)
	if err != nil {
		t.Fatal(err)
	}
	system := mustSystem(nil, mustChassis(1, device))
	ctx := context.Background()
	svc := testServices()

	system.Monitor(ctx, svc)
	bus.set(0x7A, 0x00) // fault deasserts before the debounce threshold
	system.Monitor(ctx, svc)
	bus.set(0x7A, 0x10)
	system.Monitor(ctx, svc)

	if len(device.Faults()) != 0 {
		t.Errorf("faults = %v, want none for non-consecutive detections", device.Faults())
	}
}

func TestPresenceDetectionCachesResult(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.set(0x00, 0x01)

	detection := NewPresenceDetection([]Action{
		{Kind: ActionI2CCompareByte, Register: 0x00, Value: 0x01},
	})
	device, err := NewDevice("dev", bus, detection, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	system := mustSystem(nil, mustChassis(1, device))
	ctx := context.Background()
	svc := testServices()

	if !device.isPresent(ctx, svc, system, system.chassis[0]) {
		t.Fatal("device should be present")
	}

	// The cached result survives a changed register until the cache clears.
	bus.set(0x00, 0x00)
	if !device.isPresent(ctx, svc, system, system.chassis[0]) {
		t.Error("cached presence was re-evaluated")
	}

	detection.ClearCache()
	if device.isPresent(ctx, svc, system, system.chassis[0]) {
		t.Error("presence not re-evaluated after cache clear")
	}
}

func TestPresenceDetectionAssumesPresentOnError(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.failReads[0x00] = true

	detection := NewPresenceDetection([]Action{
		{Kind: ActionI2CCompareByte, Register: 0x00, Value: 0x01},
	})
	device, err := NewDevice("dev", bus, detection, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	system := mustSystem(nil, mustChassis(1, device))

	if !device.isPresent(context.Background(), testServices(), system, system.chassis[0]) {
		t.Error("failed presence detection should assume the device is present")
	}
}

func TestMonitorSkipsAbsentDevice(t *testing.T) {
	bus := newFakeI2C("dev", nil)
	bus.failReads[0x8C] = true // would fault if monitoring ran

	monitoring := NewSensorMonitoring([]Action{readSensorAction(SensorIout, 0x8C)})
	monitoring.errorCount = maxSensorErrorCount
	rail := mustRail("vdd1", nil, monitoring)
	detection := NewPresenceDetection([]Action{
		{Kind: ActionI2CCompareByte, Register: 0x00, Value: 0x01},
	})
	device, err := NewDevice("dev", bus, detection, nil, nil, []*Rail{rail})
	if err != nil {
		t.Fatal(err)
	}
	bus.set(0x00, 0x00) // presence check reads zero: absent
	system := mustSystem(nil, mustChassis(1, device))

	system.Monitor(context.Background(), testServices())

	if len(rail.Faults()) != 0 {
		t.Errorf("absent device was monitored: %v", rail.Faults())
	}
}
