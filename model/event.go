package model

import "time"

// Category classifies a station visit or explicit trigger. The set is
// fixed: twelve categories, each with a fixed delta range in the event
// engine's catalog.
type Category string

const (
	CategoryInit       Category = "Init"
	CategoryProgress   Category = "Progress"
	CategoryDelay      Category = "Delay"
	CategoryDiscovery  Category = "Discovery"
	CategoryCollision  Category = "Collision"
	CategoryDecision   Category = "Decision"
	CategoryValidation Category = "Validation"
	CategoryShock      Category = "Shock"
	CategoryDeal       Category = "Deal"
	CategoryOrg        Category = "Org"
	CategoryExternal   Category = "External"
	CategoryEndAbort   Category = "EndAbort"
)

// Categories lists every event category in catalog order.
func Categories() []Category {
	return []Category{
		CategoryInit, CategoryProgress, CategoryDelay, CategoryDiscovery,
		CategoryCollision, CategoryDecision, CategoryValidation, CategoryShock,
		CategoryDeal, CategoryOrg, CategoryExternal, CategoryEndAbort,
	}
}

// Valid reports whether c is one of the twelve fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// MetroEvent is one immutable record of the append-only event log.
// IDs are unique and strictly orderable within a run; records are never
// edited or pruned by the core.
type MetroEvent struct {
	ID        string            `json:"event_id"`
	StationID string            `json:"station_id"`
	EntityID  string            `json:"entity_id"`
	Category  Category          `json:"category"`
	Delta     PhysicsDelta      `json:"delta"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}
