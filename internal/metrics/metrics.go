package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smccarney/phosphor-power/internal/regulators"
)

var (
	sensorValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regulators_sensor_value",
			Help: "Last observed sensor value for a voltage rail",
		},
		[]string{"chassis", "device", "rail", "sensor"},
	)

	faultCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regulators_fault_count",
			Help: "Occurrences of each recorded fault, by device, rail, and fault type",
		},
		[]string{"chassis", "device", "rail", "type"},
	)

	monitorPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "regulators_monitor_passes_total",
			Help: "Completed monitoring passes",
		},
	)
)

func init() {
	prometheus.MustRegister(sensorValue)
	prometheus.MustRegister(faultCount)
	prometheus.MustRegister(monitorPasses)
}

// RecordMonitorPass publishes the results of one monitoring pass.
func RecordMonitorPass(snapshot regulators.SystemSnapshot) {
	monitorPasses.Inc()
	Publish(snapshot)
}

// Publish exports the current snapshot's sensor values and fault counts.
func Publish(snapshot regulators.SystemSnapshot) {
	for _, chassis := range snapshot.Chassis {
		chassisLabel := strconv.Itoa(chassis.Number)
		for _, device := range chassis.Devices {
			for _, fault := range device.Faults {
				faultCount.WithLabelValues(chassisLabel, device.ID, "", fault.Type).
					Set(float64(fault.Count))
			}
			for _, rail := range device.Rails {
				for sensor, value := range rail.Sensors {
					sensorValue.WithLabelValues(chassisLabel, device.ID, rail.ID, string(sensor)).
						Set(value)
				}
				for _, fault := range rail.Faults {
					faultCount.WithLabelValues(chassisLabel, device.ID, rail.ID, fault.Type).
						Set(float64(fault.Count))
				}
			}
		}
	}
}

// Reset clears fault and sensor gauges, used when recorded state is cleared
// at power-on. Sensor series from the previous power cycle are stale, not
// observations.
func Reset() {
	faultCount.Reset()
	sensorValue.Reset()
}
