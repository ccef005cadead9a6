// Package manager drives the regulators hierarchy: it builds the System
// from the configuration file, watches the chassis power state, runs
// configuration on power-on transitions, and runs monitoring passes on a
// timer. All execution happens on the manager's single loop goroutine; the
// status surface only ever reads snapshots.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/config"
	"github.com/smccarney/phosphor-power/internal/configfile"
	"github.com/smccarney/phosphor-power/internal/i2c"
	"github.com/smccarney/phosphor-power/internal/metrics"
	"github.com/smccarney/phosphor-power/internal/regulators"
	"github.com/smccarney/phosphor-power/internal/services"
)

type Manager struct {
	cfg      *config.Config
	system   *regulators.System
	services *services.Services
	logger   *zap.Logger

	// execMu serializes action-engine execution. The monitor loop and the
	// on-demand configure endpoint run on different goroutines, but no two
	// engine executions may ever overlap on the same hierarchy.
	execMu sync.Mutex

	mu        sync.Mutex
	running   bool
	poweredOn bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// New loads and parses the regulators configuration file, opens the bus
// attachments, and wires the platform services. A build error here is fatal:
// the daemon must not run with a partially built hierarchy.
func New(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	loader, err := configfile.NewLoader(cfg.Regulators.SearchPaths)
	if err != nil {
		return nil, err
	}

	configFile, err := loader.Load(cfg.Regulators.ConfigFile)
	if err != nil {
		return nil, err
	}

	system, err := configfile.Parse(configFile, func(bus int, address uint16) (i2c.Device, error) {
		dev, err := i2c.Open(bus, address)
		if err != nil {
			return nil, err
		}
		return i2c.WithTimeout(dev, cfg.Regulators.BusTimeout), nil
	})
	if err != nil {
		return nil, err
	}

	svc := &services.Services{
		Logger:     logger,
		Presence:   services.NewStaticPresence(cfg.Platform.Presence),
		PowerState: &services.FilePowerState{Path: cfg.Platform.PowerStateFile},
		VPD:        services.NewStaticVPD(cfg.Platform.VPD),
	}

	return &Manager{
		cfg:      cfg,
		system:   system,
		services: svc,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// System returns the hierarchy, for status handlers and tests.
func (m *Manager) System() *regulators.System {
	return m.system
}

// Snapshot returns the current fault and sensor state.
func (m *Manager) Snapshot() regulators.SystemSnapshot {
	return m.system.Snapshot()
}

// Configure runs a full configuration pass on demand.
func (m *Manager) Configure(ctx context.Context) {
	m.execMu.Lock()
	defer m.execMu.Unlock()

	m.system.Configure(ctx, m.services)
	metrics.Publish(m.system.Snapshot())
}

// Start launches the monitoring loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	m.running = true
	m.wg.Add(1)

	go m.monitorLoop()

	m.logger.Info("Regulators manager started",
		zap.Duration("interval", m.cfg.Regulators.MonitorInterval))
	return nil
}

// Stop halts the monitoring loop and closes every bus attachment.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()

	for _, chassis := range m.system.Chassis() {
		for _, device := range chassis.Devices() {
			if bus := device.I2C(); bus != nil {
				if err := bus.Close(); err != nil {
					m.logger.Error("Failed to close bus attachment",
						zap.String("device", device.ID()),
						zap.Error(err))
				}
			}
		}
	}

	m.logger.Info("Regulators manager stopped")
}

func (m *Manager) monitorLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Regulators.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one iteration of the control loop: track the power state,
// configure on an off-to-on transition, and monitor while powered on.
func (m *Manager) tick() {
	m.execMu.Lock()
	defer m.execMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Regulators.MonitorInterval)
	defer cancel()

	poweredOn, err := m.services.PowerState.IsPoweredOn()
	if err != nil {
		m.logger.Warn("Unable to read power state", zap.Error(err))
		return
	}

	if poweredOn && !m.poweredOn {
		passID := uuid.New()
		m.logger.Info("Chassis powered on, configuring regulators",
			zap.String("pass", passID.String()))
		m.system.ClearFaults()
		metrics.Reset()
		m.system.Configure(ctx, m.services)
	}
	m.poweredOn = poweredOn

	if poweredOn {
		m.system.Monitor(ctx, m.services)
		metrics.RecordMonitorPass(m.system.Snapshot())
	}
}
