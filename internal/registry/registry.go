// Package registry holds every configured entity once, in registration
// order, with two index lists on top: entities that accept commands and
// entities that report state. It is immutable after New, so both bridge
// loops may read it concurrently.
package registry

import (
	"github.com/fisaks/computer-assistant/internal/entity"
)

type Registry struct {
	entities    []entity.Entity
	updateable  []int
	publishable []int
}

func New(entities []entity.Entity) *Registry {
	r := &Registry{entities: make([]entity.Entity, len(entities))}
	copy(r.entities, entities)
	for i, e := range r.entities {
		if entity.IsUpdateable(e) {
			r.updateable = append(r.updateable, i)
		}
		if entity.IsPublishable(e) {
			r.publishable = append(r.publishable, i)
		}
	}
	return r
}

func (r *Registry) Len() int { return len(r.entities) }

// All returns every entity in registration order.
func (r *Registry) All() []entity.Entity {
	out := make([]entity.Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

func (r *Registry) Updateable() []entity.Entity { return r.pick(r.updateable) }

func (r *Registry) Publishable() []entity.Entity { return r.pick(r.publishable) }

func (r *Registry) pick(idx []int) []entity.Entity {
	out := make([]entity.Entity, len(idx))
	for i, n := range idx {
		out[i] = r.entities[n]
	}
	return out
}

// FindUpdateable returns every command-accepting entity of kind with id.
// Ids are unique per kind after config validation, but all matches are
// returned.
func (r *Registry) FindUpdateable(kind, id string) []entity.Entity {
	var out []entity.Entity
	for _, n := range r.updateable {
		e := r.entities[n]
		if e.Kind().String() == kind && e.ID() == id {
			out = append(out, e)
		}
	}
	return out
}
