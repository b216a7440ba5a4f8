// Package entity holds the closed set of entity kinds exposed to Home
// Assistant. Each kind is a plain value type; capabilities are decided
// by type switch rather than by interface sets.
package entity

import "strings"

type Kind string

const (
	KindSwitch       Kind = "switch"
	KindButton       Kind = "button"
	KindBinarySensor Kind = "binary_sensor"
	KindNumber       Kind = "number"
	KindSensor       Kind = "sensor"
)

// Kinds lists every kind in registration order.
var Kinds = []Kind{KindSwitch, KindButton, KindBinarySensor, KindNumber, KindSensor}

func (k Kind) String() string { return string(k) }

func (k Kind) Valid() bool {
	switch k {
	case KindSwitch, KindButton, KindBinarySensor, KindNumber, KindSensor:
		return true
	}
	return false
}

// Name is the human readable label of an entity.
type Name string

// ID derives the stable entity id: lower case, spaces replaced by underscores.
func (n Name) ID() string { return ToID(string(n)) }

func (n Name) String() string { return string(n) }

func ToID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Entity is implemented only by the kind types of this package.
type Entity interface {
	Kind() Kind
	DisplayName() string
	ID() string
	isEntity()
}

// Base carries the fields shared by every kind.
type Base struct {
	Name Name `yaml:"name"`
}

func (b Base) DisplayName() string { return string(b.Name) }
func (b Base) ID() string          { return b.Name.ID() }

type Switch struct {
	Base         `yaml:",inline"`
	StateScript  string `yaml:"state_script"`
	OnScript     string `yaml:"on_script"`
	OffScript    string `yaml:"off_script"`
	ToggleScript string `yaml:"toggle_script,omitempty"`
}

type Button struct {
	Base          `yaml:",inline"`
	CommandScript string `yaml:"command_script"`
}

type BinarySensor struct {
	Base        `yaml:",inline"`
	StateScript string `yaml:"state_script"`
}

type Number struct {
	Base              `yaml:",inline"`
	StateScript       string  `yaml:"state_script"`
	CommandScript     string  `yaml:"command_script"`
	Min               float64 `yaml:"min"`
	Max               float64 `yaml:"max"`
	Step              float64 `yaml:"step"`
	UnitOfMeasurement string  `yaml:"unit_of_measurement"`
}

type Sensor struct {
	Base                      `yaml:",inline"`
	StateScript               string `yaml:"state_script"`
	UnitOfMeasurement         string `yaml:"unit_of_measurement"`
	SuggestedDisplayPrecision *uint8 `yaml:"suggested_display_precision"`
}

// DefaultDisplayPrecision is used when a sensor does not set one.
const DefaultDisplayPrecision uint8 = 2

// DisplayPrecision returns the configured precision or the default.
func (s Sensor) DisplayPrecision() uint8 {
	if s.SuggestedDisplayPrecision == nil {
		return DefaultDisplayPrecision
	}
	return *s.SuggestedDisplayPrecision
}

func (Switch) Kind() Kind       { return KindSwitch }
func (Button) Kind() Kind       { return KindButton }
func (BinarySensor) Kind() Kind { return KindBinarySensor }
func (Number) Kind() Kind       { return KindNumber }
func (Sensor) Kind() Kind       { return KindSensor }

func (Switch) isEntity()       {}
func (Button) isEntity()       {}
func (BinarySensor) isEntity() {}
func (Number) isEntity()       {}
func (Sensor) isEntity()       {}

// IsPublishable reports whether the entity reports state.
func IsPublishable(e Entity) bool {
	switch e.(type) {
	case Switch, BinarySensor, Number, Sensor:
		return true
	}
	return false
}

// IsUpdateable reports whether the entity accepts commands.
func IsUpdateable(e Entity) bool {
	switch e.(type) {
	case Switch, Button, Number:
		return true
	}
	return false
}

// StateScript returns the state-producing script, empty for kinds without one.
func StateScript(e Entity) string {
	switch v := e.(type) {
	case Switch:
		return v.StateScript
	case BinarySensor:
		return v.StateScript
	case Number:
		return v.StateScript
	case Sensor:
		return v.StateScript
	}
	return ""
}

// ReportsOnOff is true for kinds whose state is the script's exit status.
func ReportsOnOff(e Entity) bool {
	switch e.(type) {
	case Switch, BinarySensor:
		return true
	}
	return false
}
