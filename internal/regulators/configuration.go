package regulators

// Configuration is a named, ordered action sequence applied to a device or
// rail when the system powers on. The optional volts value feeds
// pmbus_write_vout_command actions that carry no volts of their own. The
// sequence is immutable once built.
type Configuration struct {
	name    string
	volts   *float64
	actions []Action
}

func NewConfiguration(name string, volts *float64, actions []Action) *Configuration {
	return &Configuration{name: name, volts: volts, actions: actions}
}

func (c *Configuration) Name() string {
	return c.name
}

func (c *Configuration) Volts() *float64 {
	return c.volts
}

func (c *Configuration) Actions() []Action {
	return c.actions
}

// execute runs the configuration's actions in order. The first failing
// action aborts the rest; the caller records the fault at the device or
// rail boundary.
func (c *Configuration) execute(a *ActionContext) error {
	a.volts = c.volts
	_, err := executeActions(a, c.actions)
	return err
}
