// Package discovery builds the retained Home Assistant MQTT discovery
// payloads, one kind-specific shape per entity. Keys use Home
// Assistant's abbreviations; keys that do not apply to a kind are not
// present, so the kind can be told from the payload alone.
package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/fisaks/computer-assistant/internal/config"
	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/topics"
)

const (
	ValueTemplate = "{{value}}"
	StateOn       = "ON"
	StateOff      = "OFF"
	PayloadPress  = "PRESS"
)

type Device struct {
	IDs              []string `json:"ids"`
	SWVersion        string   `json:"sw,omitempty"`
	Manufacturer     string   `json:"mf,omitempty"`
	ConfigurationURL string   `json:"cu,omitempty"`
	Model            string   `json:"mdl,omitempty"`
	Name             string   `json:"name"`
}

// identity is shared by every descriptor.
type identity struct {
	Name              string `json:"name"`
	UniqueID          string `json:"uniq_id"`
	AvailabilityTopic string `json:"avty_t"`
	Device            Device `json:"dev"`
}

type Switch struct {
	identity
	CommandTopic  string `json:"cmd_t"`
	StateTopic    string `json:"stat_t"`
	ValueTemplate string `json:"value_template"`
	StateOn       string `json:"state_on"`
	StateOff      string `json:"state_off"`
}

type Button struct {
	identity
	CommandTopic    string `json:"cmd_t"`
	CommandTemplate string `json:"command_template"`
	PayloadPress    string `json:"payload_press"`
}

type BinarySensor struct {
	identity
	StateTopic    string `json:"stat_t"`
	ValueTemplate string `json:"value_template"`
	PayloadOn     string `json:"payload_on"`
	PayloadOff    string `json:"payload_off"`
}

type Number struct {
	identity
	CommandTopic      string  `json:"cmd_t"`
	CommandTemplate   string  `json:"command_template"`
	StateTopic        string  `json:"stat_t"`
	ValueTemplate     string  `json:"value_template"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Step              float64 `json:"step"`
	UnitOfMeasurement string  `json:"unit_of_measurement,omitempty"`
}

type Sensor struct {
	identity
	StateTopic                string `json:"stat_t"`
	ValueTemplate             string `json:"value_template"`
	UnitOfMeasurement         string `json:"unit_of_measurement,omitempty"`
	SuggestedDisplayPrecision uint8  `json:"suggested_display_precision"`
}

// Descriptor is one of Switch, Button, BinarySensor, Number or Sensor.
type Descriptor interface {
	Kind() entity.Kind
}

func (Switch) Kind() entity.Kind       { return entity.KindSwitch }
func (Button) Kind() entity.Kind       { return entity.KindButton }
func (BinarySensor) Kind() entity.Kind { return entity.KindBinarySensor }
func (Number) Kind() entity.Kind       { return entity.KindNumber }
func (Sensor) Kind() entity.Kind       { return entity.KindSensor }

// Message is a discovery payload ready to be published retained.
func newDevice(d config.Device) Device {
	ids := make([]string, len(d.IDs))
	copy(ids, d.IDs)
	return Device{
		IDs:              ids,
		SWVersion:        d.SWVersion,
		Manufacturer:     d.Manufacturer,
		ConfigurationURL: d.ConfigurationURL,
		Model:            d.Model,
		Name:             d.Name,
	}
}

// Build returns the descriptor for e. The device block is copied.
func Build(e entity.Entity, g config.GlobalConfig) Descriptor {
	kind, id := e.Kind(), e.ID()
	base := identity{
		Name:              e.DisplayName(),
		UniqueID:          id,
		AvailabilityTopic: topics.Availability(g.BaseTopic, g.AvailabilityTopic),
		Device:            newDevice(g.Device),
	}
	cmd := topics.Command(g.BaseTopic, kind, id)
	stat := topics.State(g.BaseTopic, kind, id)

	switch v := e.(type) {
	case entity.Switch:
		return Switch{identity: base, CommandTopic: cmd, StateTopic: stat, ValueTemplate: ValueTemplate, StateOn: StateOn, StateOff: StateOff}
	case entity.Button:
		return Button{identity: base, CommandTopic: cmd, CommandTemplate: ValueTemplate, PayloadPress: PayloadPress}
	case entity.BinarySensor:
		return BinarySensor{identity: base, StateTopic: stat, ValueTemplate: ValueTemplate, PayloadOn: StateOn, PayloadOff: StateOff}
	case entity.Number:
		return Number{
			identity:          base,
			CommandTopic:      cmd,
			CommandTemplate:   ValueTemplate,
			StateTopic:        stat,
			ValueTemplate:     ValueTemplate,
			Min:               v.Min,
			Max:               v.Max,
			Step:              v.Step,
			UnitOfMeasurement: v.UnitOfMeasurement,
		}
	case entity.Sensor:
		return Sensor{
			identity:                  base,
			StateTopic:                stat,
			ValueTemplate:             ValueTemplate,
			UnitOfMeasurement:         v.UnitOfMeasurement,
			SuggestedDisplayPrecision: v.DisplayPrecision(),
		}
	}
	panic(fmt.Sprintf("discovery: unhandled entity kind %s", kind))
}

// Topic is the discovery topic of e.
func Topic(e entity.Entity, g config.GlobalConfig) string {
	return topics.Discovery(g.HomeAssistantTopic, e.Kind(), g.BaseTopic, e.ID())
}

// KindOf infers the entity kind of a discovery payload from the keys it carries.
func KindOf(payload []byte) (entity.Kind, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", fmt.Errorf("decode discovery payload: %w", err)
	}
	has := func(key string) bool { _, ok := fields[key]; return ok }

	switch {
	case has("payload_press"):
		return entity.KindButton, nil
	case has("min") || has("max") || has("step") || has("command_template"):
		return entity.KindNumber, nil
	case has("state_on") && has("cmd_t"):
		return entity.KindSwitch, nil
	case has("payload_on"):
		return entity.KindBinarySensor, nil
	case has("suggested_display_precision"):
		return entity.KindSensor, nil
	case has("stat_t") && !has("cmd_t"):
		return entity.KindSensor, nil
	}
	return "", fmt.Errorf("discovery payload matches no known entity kind")
}
