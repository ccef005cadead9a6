package regulators

// Snapshot types for the status surface. Snapshots are pull-style,
// eventually consistent copies of the fault and sensor state recorded by the
// execution goroutine; they are never transactional across entities.

type SystemSnapshot struct {
	Chassis []ChassisSnapshot `json:"chassis"`
}

type ChassisSnapshot struct {
	Number  int              `json:"number"`
	Devices []DeviceSnapshot `json:"devices"`
}

type DeviceSnapshot struct {
	ID     string         `json:"id"`
	Faults []FaultRecord  `json:"faults,omitempty"`
	Rails  []RailSnapshot `json:"rails,omitempty"`
}

type RailSnapshot struct {
	ID      string                 `json:"id"`
	Sensors map[SensorType]float64 `json:"sensors,omitempty"`
	Faults  []FaultRecord          `json:"faults,omitempty"`
}

// Snapshot captures the current fault records and sensor values of the whole
// hierarchy.
func (s *System) Snapshot() SystemSnapshot {
	snap := SystemSnapshot{Chassis: make([]ChassisSnapshot, 0, len(s.chassis))}
	for _, ch := range s.chassis {
		chSnap := ChassisSnapshot{Number: ch.number}
		for _, device := range ch.devices {
			devSnap := DeviceSnapshot{
				ID:     device.id,
				Faults: device.faults.snapshot(),
			}
			for _, rail := range device.rails {
				devSnap.Rails = append(devSnap.Rails, RailSnapshot{
					ID:      rail.id,
					Sensors: rail.Sensors(),
					Faults:  rail.faults.snapshot(),
				})
			}
			chSnap.Devices = append(chSnap.Devices, devSnap)
		}
		snap.Chassis = append(snap.Chassis, chSnap)
	}
	return snap
}
