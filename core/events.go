package core

import (
	"sort"
	"time"

	"github.com/signalsfoundry/metroline-simulator/model"
)

// Classification thresholds for the automatic category rules.
const (
	shockRiskThreshold     = 0.7
	delayEntropyThreshold  = 0.6
	collisionEnergyFloor   = 0.3
	collisionSeverityFixed = 0.5
)

// DeltaRange is a category's [min,max] delta envelope. Ordinary events
// interpolate it by the entity's context factor.
type DeltaRange struct {
	Min model.PhysicsDelta
	Max model.PhysicsDelta
}

// Interpolate returns the component-wise linear interpolation of the
// range: factor 0 yields Min exactly, factor 1 yields Max exactly, and
// anything outside [0,1] is clamped.
func (r DeltaRange) Interpolate(factor float64) model.PhysicsDelta {
	f := clamp01(factor)
	// This form is exact at both endpoints: f=0 yields lo, f=1 yields hi.
	lerp := func(lo, hi float64) float64 { return lo*(1-f) + hi*f }
	return model.PhysicsDelta{
		DT:       lerp(r.Min.DT, r.Max.DT),
		DEnergy:  lerp(r.Min.DEnergy, r.Max.DEnergy),
		DEntropy: lerp(r.Min.DEntropy, r.Max.DEntropy),
		DRisk:    lerp(r.Min.DRisk, r.Max.DRisk),
	}
}

// eventCatalog fixes the delta envelope of each of the twelve categories.
// Risk components are non-negative everywhere: risk only accumulates.
var eventCatalog = map[model.Category]DeltaRange{
	model.CategoryInit: {
		Min: model.PhysicsDelta{},
		Max: model.PhysicsDelta{DEntropy: 0.05, DRisk: 0.02},
	},
	model.CategoryProgress: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.02},
		Max: model.PhysicsDelta{DT: 3, DEnergy: -0.06, DEntropy: 0.05, DRisk: 0.02},
	},
	model.CategoryDelay: {
		Min: model.PhysicsDelta{DT: 2, DEnergy: -0.05, DEntropy: 0.05, DRisk: 0.02},
		Max: model.PhysicsDelta{DT: 8, DEnergy: -0.15, DEntropy: 0.15, DRisk: 0.08},
	},
	model.CategoryDiscovery: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.02, DEntropy: -0.05},
		Max: model.PhysicsDelta{DT: 4, DEnergy: -0.08, DEntropy: 0.10, DRisk: 0.05},
	},
	model.CategoryCollision: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.10, DEntropy: 0.05, DRisk: 0.05},
		Max: model.PhysicsDelta{DT: 5, DEnergy: -0.25, DEntropy: 0.20, DRisk: 0.15},
	},
	model.CategoryDecision: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.05, DEntropy: 0.05, DRisk: 0.02},
		Max: model.PhysicsDelta{DT: 3, DEnergy: -0.10, DEntropy: 0.15, DRisk: 0.10},
	},
	model.CategoryValidation: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.02, DEntropy: -0.10},
		Max: model.PhysicsDelta{DT: 2, DEnergy: -0.05, DEntropy: 0.05, DRisk: 0.03},
	},
	model.CategoryShock: {
		Min: model.PhysicsDelta{DEnergy: -0.05, DEntropy: 0.05, DRisk: 0.10},
		Max: model.PhysicsDelta{DT: 2, DEnergy: -0.15, DEntropy: 0.15, DRisk: 0.40},
	},
	model.CategoryDeal: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.05},
		Max: model.PhysicsDelta{DT: 3, DEnergy: -0.10, DEntropy: 0.10, DRisk: 0.05},
	},
	model.CategoryOrg: {
		Min: model.PhysicsDelta{DT: 1, DEnergy: -0.03, DEntropy: 0.02, DRisk: 0.01},
		Max: model.PhysicsDelta{DT: 4, DEnergy: -0.10, DEntropy: 0.12, DRisk: 0.06},
	},
	model.CategoryExternal: {
		Min: model.PhysicsDelta{DEnergy: -0.05, DEntropy: 0.05, DRisk: 0.05},
		Max: model.PhysicsDelta{DT: 1, DEnergy: -0.20, DEntropy: 0.20, DRisk: 0.25},
	},
	model.CategoryEndAbort: {
		Min: model.PhysicsDelta{DEnergy: -0.10, DEntropy: 0.10, DRisk: 0.10},
		Max: model.PhysicsDelta{DEnergy: -0.30, DEntropy: 0.30, DRisk: 0.50},
	},
}

// CategoryRange resolves a category's delta envelope.
func CategoryRange(cat model.Category) (DeltaRange, bool) {
	r, ok := eventCatalog[cat]
	return r, ok
}

// ContextFactor is the [0,1] stress measure of an entity at the moment of
// an event: (entropy + risk + depletion) / 3. The more distressed the
// entity, the closer an ordinary event lands to its category's max delta.
func ContextFactor(e model.EntityState) float64 {
	return clamp01((e.Entropy + e.Risk + (1 - e.Energy)) / 3)
}

// categoryRule is one row of the classification table. The table order is
// the precedence contract: rules are evaluated top to bottom and the first
// match wins.
type categoryRule struct {
	name     string
	match    func(st model.Station, e model.EntityState) bool
	category func(st model.Station) model.Category
}

var categoryRules = []categoryRule{
	{
		name:     "forced",
		match:    func(st model.Station, _ model.EntityState) bool { return st.ForcedCategory != "" },
		category: func(st model.Station) model.Category { return st.ForcedCategory },
	},
	{
		name:     "exit",
		match:    func(st model.Station, _ model.EntityState) bool { return st.IsExit },
		category: func(model.Station) model.Category { return model.CategoryEndAbort },
	},
	{
		name:     "transfer",
		match:    func(st model.Station, _ model.EntityState) bool { return st.IsTransfer },
		category: func(model.Station) model.Category { return model.CategoryDecision },
	},
	{
		name:     "first-visit",
		match:    func(_ model.Station, e model.EntityState) bool { return len(e.PathHistory) == 0 },
		category: func(model.Station) model.Category { return model.CategoryInit },
	},
	{
		name:     "high-risk",
		match:    func(_ model.Station, e model.EntityState) bool { return e.Risk > shockRiskThreshold },
		category: func(model.Station) model.Category { return model.CategoryShock },
	},
	{
		name:     "high-entropy",
		match:    func(_ model.Station, e model.EntityState) bool { return e.Entropy > delayEntropyThreshold },
		category: func(model.Station) model.Category { return model.CategoryDelay },
	},
	{
		name:     "low-energy",
		match:    func(_ model.Station, e model.EntityState) bool { return e.Energy < collisionEnergyFloor },
		category: func(model.Station) model.Category { return model.CategoryCollision },
	},
}

// ClassifyVisit determines the category of a station visit by the ordered
// rule table, falling through to Progress when nothing matches.
func ClassifyVisit(st model.Station, e model.EntityState) model.Category {
	for _, rule := range categoryRules {
		if rule.match(st, e) {
			return rule.category(st)
		}
	}
	return model.CategoryProgress
}

// EventEngine classifies visits and explicit triggers into immutable event
// records. It is pure apart from the injected id generator and clock; it
// never touches entity state, the controller applies the deltas it emits.
type EventEngine struct {
	ids IDGenerator
	now func() time.Time
}

// NewEventEngine creates an engine with the given id source and clock.
// A nil clock falls back to wall time.
func NewEventEngine(ids IDGenerator, now func() time.Time) *EventEngine {
	if now == nil {
		now = time.Now
	}
	return &EventEngine{ids: ids, now: now}
}

// EventFor builds an event of an explicit category for an entity at a
// station, its delta interpolated from the category's range by the
// entity's context factor.
func (ee *EventEngine) EventFor(cat model.Category, stationID string, e model.EntityState) model.MetroEvent {
	rng := eventCatalog[cat]
	return model.MetroEvent{
		ID:        ee.ids.NextEventID(),
		StationID: stationID,
		EntityID:  e.ID,
		Category:  cat,
		Delta:     rng.Interpolate(ContextFactor(e)),
		Timestamp: ee.now(),
	}
}

// VisitEvent classifies a station visit and builds the resulting event.
func (ee *EventEngine) VisitEvent(st model.Station, e model.EntityState) model.MetroEvent {
	return ee.EventFor(ClassifyVisit(st, e), st.ID, e)
}

// CollisionPair builds the two records of an entity collision, in
// entity-id order, each naming the other participant in its metadata.
// Collision severity is fixed rather than context-interpolated: the hit is
// externally imposed, not a function of the victim's own stress.
func (ee *EventEngine) CollisionPair(stationID string, a, b model.EntityState) []model.MetroEvent {
	if a.ID == b.ID {
		return nil
	}
	if b.ID < a.ID {
		a, b = b, a
	}
	rng := eventCatalog[model.CategoryCollision]
	delta := rng.Interpolate(collisionSeverityFixed)
	ts := ee.now()

	mk := func(self, other model.EntityState) model.MetroEvent {
		return model.MetroEvent{
			ID:        ee.ids.NextEventID(),
			StationID: stationID,
			EntityID:  self.ID,
			Category:  model.CategoryCollision,
			Delta:     delta,
			Timestamp: ts,
			Meta:      map[string]string{"other_entity": other.ID},
		}
	}
	return []model.MetroEvent{mk(a, b), mk(b, a)}
}

// ExternalShock broadcasts one magnitude-interpolated delta to a set of
// entities simultaneously. Unlike ordinary events the delta is shared:
// it depends on the shock's magnitude, not on each entity's own context.
// Records are emitted in entity-id order.
func (ee *EventEngine) ExternalShock(entities []model.EntityState, magnitude float64, meta map[string]string) []model.MetroEvent {
	if len(entities) == 0 {
		return nil
	}
	sorted := append([]model.EntityState(nil), entities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	rng := eventCatalog[model.CategoryExternal]
	delta := rng.Interpolate(magnitude)
	ts := ee.now()

	out := make([]model.MetroEvent, 0, len(sorted))
	for _, e := range sorted {
		var m map[string]string
		if len(meta) > 0 {
			m = make(map[string]string, len(meta))
			for k, v := range meta {
				m[k] = v
			}
		}
		out = append(out, model.MetroEvent{
			ID:        ee.ids.NextEventID(),
			StationID: e.StationID,
			EntityID:  e.ID,
			Category:  model.CategoryExternal,
			Delta:     delta,
			Timestamp: ts,
			Meta:      m,
		})
	}
	return out
}

// AbortEvent builds the terminal event of a user-triggered abort,
// interpolated by the entity's own context factor.
func (ee *EventEngine) AbortEvent(e model.EntityState) model.MetroEvent {
	return ee.EventFor(model.CategoryEndAbort, e.StationID, e)
}
