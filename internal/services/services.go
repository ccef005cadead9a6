// Package services bundles the platform facilities the action engine
// consults while executing: hardware presence, system power state, and vital
// product data. The production daemon backs these with files maintained by
// the platform inventory; tests substitute in-memory fakes.
package services

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Presence reports whether an optional device is physically installed.
type Presence interface {
	IsPresent(deviceID string) (bool, error)
}

// PowerState reports whether the chassis power is on.
type PowerState interface {
	IsPoweredOn() (bool, error)
}

// VPD provides vital product data keywords for a device, such as the part
// number ("CCIN") of the installed card.
type VPD interface {
	Value(deviceID string, keyword string) (string, error)
}

// Services is the bundle handed down through configure and monitor calls.
type Services struct {
	Logger     *zap.Logger
	Presence   Presence
	PowerState PowerState
	VPD        VPD
}

// StaticPresence is a Presence backed by a fixed map. Devices not listed are
// reported present, matching the convention that presence detection is only
// configured for optional hardware.
type StaticPresence struct {
	mu      sync.RWMutex
	entries map[string]bool
}

func NewStaticPresence(entries map[string]bool) *StaticPresence {
	if entries == nil {
		entries = make(map[string]bool)
	}
	return &StaticPresence{entries: entries}
}

func (p *StaticPresence) IsPresent(deviceID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	present, found := p.entries[deviceID]
	if !found {
		return true, nil
	}
	return present, nil
}

func (p *StaticPresence) Set(deviceID string, present bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[deviceID] = present
}

// FilePowerState reads the power good state from a file exported by the
// power sequencer driver. A first line of "1" means powered on.
type FilePowerState struct {
	Path string
}

func (p *FilePowerState) IsPoweredOn() (bool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read power state from %s: %w", p.Path, err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}

// StaticVPD is a VPD provider backed by a fixed map keyed by
// "deviceID/keyword".
type StaticVPD struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewStaticVPD(entries map[string]string) *StaticVPD {
	if entries == nil {
		entries = make(map[string]string)
	}
	return &StaticVPD{entries: entries}
}

func (v *StaticVPD) Value(deviceID string, keyword string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, found := v.entries[deviceID+"/"+keyword]
	if !found {
		return "", fmt.Errorf("no VPD keyword %s for device %s", keyword, deviceID)
	}
	return value, nil
}

func (v *StaticVPD) Set(deviceID string, keyword string, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[deviceID+"/"+keyword] = value
}
