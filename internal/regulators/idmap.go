package regulators

// IDMap is the identifier registry that lets actions reference devices,
// rails, and rules by name. It holds non-owning references into the
// hierarchy and must be fully populated before the first execution begins.
// Registration is append-only: entries are never removed or replaced.
type IDMap struct {
	devices map[string]*Device
	rails   map[string]*Rail
	rules   map[string]*Rule
}

func NewIDMap() *IDMap {
	return &IDMap{
		devices: make(map[string]*Device),
		rails:   make(map[string]*Rail),
		rules:   make(map[string]*Rule),
	}
}

// AddDevice registers a device. A duplicate identifier is a fatal
// configuration error detected at build time.
func (m *IDMap) AddDevice(device *Device) error {
	if _, exists := m.devices[device.ID()]; exists {
		return buildErrorf("duplicate device ID %q", device.ID())
	}
	m.devices[device.ID()] = device
	return nil
}

// AddRail registers a rail.
func (m *IDMap) AddRail(rail *Rail) error {
	if _, exists := m.rails[rail.ID()]; exists {
		return buildErrorf("duplicate rail ID %q", rail.ID())
	}
	m.rails[rail.ID()] = rail
	return nil
}

// AddRule registers a reusable rule.
func (m *IDMap) AddRule(rule *Rule) error {
	if _, exists := m.rules[rule.ID]; exists {
		return buildErrorf("duplicate rule ID %q", rule.ID)
	}
	m.rules[rule.ID] = rule
	return nil
}

// GetDevice returns the device registered under id, or a *LookupError if the
// identifier is unknown.
func (m *IDMap) GetDevice(id string) (*Device, error) {
	device, found := m.devices[id]
	if !found {
		return nil, &LookupError{Kind: "device", ID: id}
	}
	return device, nil
}

// GetRail returns the rail registered under id.
func (m *IDMap) GetRail(id string) (*Rail, error) {
	rail, found := m.rails[id]
	if !found {
		return nil, &LookupError{Kind: "rail", ID: id}
	}
	return rail, nil
}

// GetRule returns the rule registered under id.
func (m *IDMap) GetRule(id string) (*Rule, error) {
	rule, found := m.rules[id]
	if !found {
		return nil, &LookupError{Kind: "rule", ID: id}
	}
	return rule, nil
}
