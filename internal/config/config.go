// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/logging"
)

const (
	DefaultHomeAssistantTopic = "homeassistant"
	DefaultAvailabilityTopic  = "status"
	DefaultCommandDelayMs     = 500
	DefaultNumberMax          = 100.0
	DefaultNumberStep         = 1.0
)

/* =========================
   Types
   ========================= */

type Config struct {
	ComputerAssistant GlobalConfig          `yaml:"computer_assistant"`
	Switch            []entity.Switch       `yaml:"switch"`
	Button            []entity.Button       `yaml:"button"`
	BinarySensor      []entity.BinarySensor `yaml:"binary_sensor"`
	Number            []entity.Number       `yaml:"number"`
	Sensor            []entity.Sensor       `yaml:"sensor"`
}

type GlobalConfig struct {
	BaseTopic          string `yaml:"base_topic"`
	Device             Device `yaml:"device"`
	Name               string `yaml:"name"`
	UniqueID           string `yaml:"unique_id"`
	StatusPubInterval  int    `yaml:"status_pub_interval"` // seconds
	HomeAssistantTopic string `yaml:"homeassistant_topic"`
	AvailabilityTopic  string `yaml:"availability_topic"`
	CommandDelayMs     *int   `yaml:"command_delay_ms"` // nil = default, 0 disables the delay
}

// Device is the Home Assistant device block shared by every entity.
type Device struct {
	IDs              []string `yaml:"ids"`
	SWVersion        string   `yaml:"sw_version"`
	Manufacturer     string   `yaml:"manufacturer"`
	ConfigurationURL string   `yaml:"configuration_url"`
	Model            string   `yaml:"model"`
	Name             string   `yaml:"name"`
}

// UnmarshalYAML accepts both the long keys and Home Assistant's
// abbreviations (sw, mf, cu, mdl).
func (d *Device) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		IDs              []string `yaml:"ids"`
		SWVersion        string   `yaml:"sw_version"`
		SW               string   `yaml:"sw"`
		Manufacturer     string   `yaml:"manufacturer"`
		MF               string   `yaml:"mf"`
		ConfigurationURL string   `yaml:"configuration_url"`
		CU               string   `yaml:"cu"`
		Model            string   `yaml:"model"`
		MDL              string   `yaml:"mdl"`
		Name             string   `yaml:"name"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*d = Device{
		IDs:              raw.IDs,
		SWVersion:        firstNonEmpty(raw.SWVersion, raw.SW),
		Manufacturer:     firstNonEmpty(raw.Manufacturer, raw.MF),
		ConfigurationURL: firstNonEmpty(raw.ConfigurationURL, raw.CU),
		Model:            firstNonEmpty(raw.Model, raw.MDL),
		Name:             raw.Name,
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

/* =========================
   Helpers
   ========================= */

func (g GlobalConfig) StatusInterval() time.Duration {
	return time.Duration(g.StatusPubInterval) * time.Second
}

func (g GlobalConfig) CommandDelay() time.Duration {
	if g.CommandDelayMs == nil {
		return DefaultCommandDelayMs * time.Millisecond
	}
	return time.Duration(*g.CommandDelayMs) * time.Millisecond
}

// Entities returns every configured entity in registration order:
// switches, buttons, binary sensors, numbers, sensors.
func (c *Config) Entities() []entity.Entity {
	out := make([]entity.Entity, 0, len(c.Switch)+len(c.Button)+len(c.BinarySensor)+len(c.Number)+len(c.Sensor))
	for _, e := range c.Switch {
		out = append(out, e)
	}
	for _, e := range c.Button {
		out = append(out, e)
	}
	for _, e := range c.BinarySensor {
		out = append(out, e)
	}
	for _, e := range c.Number {
		out = append(out, e)
	}
	for _, e := range c.Sensor {
		out = append(out, e)
	}
	return out
}

/* =========================
   Strict load + validate
   ========================= */

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

func LoadConfigFromReader(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("invalid YAML: config is empty")
		}
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate fills defaults and reports every problem found.
func (c *Config) Validate() error {
	var errs multiErr
	g := &c.ComputerAssistant

	/* Global */
	if strings.TrimSpace(g.BaseTopic) == "" {
		errs.add("computer_assistant.base_topic is required")
	} else if strings.ContainsAny(g.BaseTopic, "+#") {
		errs.add("computer_assistant.base_topic cannot contain MQTT wildcards")
	}
	if g.StatusPubInterval <= 0 {
		errs.add("computer_assistant.status_pub_interval must be > 0 (seconds)")
	}
	if g.HomeAssistantTopic == "" {
		g.HomeAssistantTopic = DefaultHomeAssistantTopic
	}
	if g.AvailabilityTopic == "" {
		g.AvailabilityTopic = DefaultAvailabilityTopic
	}
	if g.CommandDelayMs != nil && *g.CommandDelayMs < 0 {
		errs.add("computer_assistant.command_delay_ms cannot be negative")
	}
	if len(g.Device.IDs) == 0 {
		errs.add("computer_assistant.device.ids cannot be empty")
	}
	if strings.TrimSpace(g.Device.Name) == "" {
		errs.add("computer_assistant.device.name is required")
	}

	/* Entities */
	seen := map[entity.Kind]map[string]int{}
	for _, k := range entity.Kinds {
		seen[k] = map[string]int{}
	}
	checkName := func(kind entity.Kind, i int, name entity.Name) {
		if strings.TrimSpace(string(name)) == "" {
			errs.addf("%s[%d]: name is required", kind, i)
			return
		}
		id := name.ID()
		if strings.ContainsAny(id, "/+#") {
			errs.addf("%s[%d/%s]: name cannot contain '/', '+' or '#'", kind, i, name)
		}
		if j, dup := seen[kind][id]; dup {
			errs.addf("%s[%d/%s]: duplicate id %q (also at %s[%d])", kind, i, name, id, kind, j)
			return
		}
		seen[kind][id] = i
	}
	required := func(kind entity.Kind, i int, name entity.Name, field, value string) {
		if strings.TrimSpace(value) == "" {
			errs.addf("%s[%d/%s]: %s is required", kind, i, name, field)
		}
	}

	for i, s := range c.Switch {
		checkName(entity.KindSwitch, i, s.Name)
		required(entity.KindSwitch, i, s.Name, "state_script", s.StateScript)
		required(entity.KindSwitch, i, s.Name, "on_script", s.OnScript)
		required(entity.KindSwitch, i, s.Name, "off_script", s.OffScript)
	}
	for i, b := range c.Button {
		checkName(entity.KindButton, i, b.Name)
		required(entity.KindButton, i, b.Name, "command_script", b.CommandScript)
	}
	for i, b := range c.BinarySensor {
		checkName(entity.KindBinarySensor, i, b.Name)
		required(entity.KindBinarySensor, i, b.Name, "state_script", b.StateScript)
	}
	for i := range c.Number {
		n := &c.Number[i]
		checkName(entity.KindNumber, i, n.Name)
		required(entity.KindNumber, i, n.Name, "state_script", n.StateScript)
		required(entity.KindNumber, i, n.Name, "command_script", n.CommandScript)
		if n.Min == 0 && n.Max == 0 {
			n.Max = DefaultNumberMax
		}
		if n.Step == 0 {
			n.Step = DefaultNumberStep
		}
		if n.Step < 0 {
			errs.addf("number[%d/%s]: step must be > 0", i, n.Name)
		}
		if n.Min > n.Max {
			errs.addf("number[%d/%s]: min (%v) is greater than max (%v)", i, n.Name, n.Min, n.Max)
		}
	}
	for i, s := range c.Sensor {
		checkName(entity.KindSensor, i, s.Name)
		required(entity.KindSensor, i, s.Name, "state_script", s.StateScript)
	}

	if len(c.Entities()) == 0 {
		logging.Warn("no entities configured, only availability will be published")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// small multi-error
type multiErr []string

func (m *multiErr) add(s string)            { *m = append(*m, s) }
func (m *multiErr) addf(f string, a ...any) { *m = append(*m, fmt.Sprintf(f, a...)) }
func (m multiErr) Error() string            { return "validation errors: " + strings.Join(m, "; ") }
