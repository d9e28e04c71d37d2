package core

import (
	"testing"

	"github.com/signalsfoundry/metroline-simulator/model"
)

func newTestEngine() *EventEngine {
	return NewEventEngine(NewSequentialIDGenerator("t-"), fixedClock())
}

func TestInterpolateBoundaryLaw(t *testing.T) {
	for _, cat := range model.Categories() {
		rng, ok := CategoryRange(cat)
		if !ok {
			t.Fatalf("category %q missing from the catalog", cat)
		}
		if got := rng.Interpolate(0); got != rng.Min {
			t.Errorf("%s: Interpolate(0) = %+v, want exact Min %+v", cat, got, rng.Min)
		}
		if got := rng.Interpolate(1); got != rng.Max {
			t.Errorf("%s: Interpolate(1) = %+v, want exact Max %+v", cat, got, rng.Max)
		}
		// Factors outside [0,1] clamp to the nearest endpoint.
		if got := rng.Interpolate(-3); got != rng.Min {
			t.Errorf("%s: Interpolate(-3) = %+v, want Min", cat, got)
		}
		if got := rng.Interpolate(7); got != rng.Max {
			t.Errorf("%s: Interpolate(7) = %+v, want Max", cat, got)
		}
	}
}

func TestCatalogRiskNeverNegative(t *testing.T) {
	for _, cat := range model.Categories() {
		rng, _ := CategoryRange(cat)
		if rng.Min.DRisk < 0 || rng.Max.DRisk < 0 {
			t.Errorf("%s: catalog carries a negative risk component: %+v / %+v", cat, rng.Min, rng.Max)
		}
	}
}

func TestContextFactor(t *testing.T) {
	cases := []struct {
		name string
		e    model.EntityState
		want float64
	}{
		{"fresh", model.EntityState{Energy: 1}, 0},
		{"spent", model.EntityState{Energy: 0, Entropy: 1, Risk: 1}, 1},
		{"mid", model.EntityState{Energy: 0.5, Entropy: 0.5, Risk: 0.5}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContextFactor(tc.e); got != tc.want {
				t.Fatalf("ContextFactor = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyVisitPrecedence(t *testing.T) {
	visited := model.EntityState{Energy: 1, PathHistory: []string{"harbor"}}

	cases := []struct {
		name    string
		station model.Station
		entity  model.EntityState
		want    model.Category
	}{
		{
			name:    "forced beats exit and transfer",
			station: model.Station{ID: "x", ForcedCategory: model.CategoryDiscovery, IsExit: true, IsTransfer: true},
			entity:  visited,
			want:    model.CategoryDiscovery,
		},
		{
			name:    "exit beats transfer",
			station: model.Station{ID: "x", IsExit: true, IsTransfer: true},
			entity:  visited,
			want:    model.CategoryEndAbort,
		},
		{
			name:    "exit beats first visit",
			station: model.Station{ID: "x", IsExit: true},
			entity:  model.EntityState{Energy: 1},
			want:    model.CategoryEndAbort,
		},
		{
			name:    "transfer beats state rules",
			station: model.Station{ID: "x", IsTransfer: true},
			entity:  model.EntityState{Energy: 0, Entropy: 1, Risk: 1, PathHistory: []string{"harbor"}},
			want:    model.CategoryDecision,
		},
		{
			name:    "first visit on a plain station",
			station: model.Station{ID: "x"},
			entity:  model.EntityState{Energy: 1},
			want:    model.CategoryInit,
		},
		{
			name:    "high risk beats high entropy",
			station: model.Station{ID: "x"},
			entity:  model.EntityState{Energy: 1, Entropy: 0.9, Risk: 0.9, PathHistory: []string{"harbor"}},
			want:    model.CategoryShock,
		},
		{
			name:    "high entropy beats low energy",
			station: model.Station{ID: "x"},
			entity:  model.EntityState{Energy: 0.1, Entropy: 0.9, PathHistory: []string{"harbor"}},
			want:    model.CategoryDelay,
		},
		{
			name:    "low energy alone",
			station: model.Station{ID: "x"},
			entity:  model.EntityState{Energy: 0.1, PathHistory: []string{"harbor"}},
			want:    model.CategoryCollision,
		},
		{
			name:    "threshold values are not over",
			station: model.Station{ID: "x"},
			entity:  model.EntityState{Energy: 1, Entropy: 0.6, Risk: 0.7, PathHistory: []string{"harbor"}},
			want:    model.CategoryProgress,
		},
		{
			name:    "default",
			station: model.Station{ID: "x"},
			entity:  visited,
			want:    model.CategoryProgress,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyVisit(tc.station, tc.entity); got != tc.want {
				t.Fatalf("ClassifyVisit = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEventForInterpolatesByContext(t *testing.T) {
	ee := newTestEngine()
	fresh := model.EntityState{ID: "a", Energy: 1}
	spent := model.EntityState{ID: "b", Energy: 0, Entropy: 1, Risk: 1}
	rng, _ := CategoryRange(model.CategoryDelay)

	ev := ee.EventFor(model.CategoryDelay, "union", fresh)
	if ev.Delta != rng.Min {
		t.Fatalf("fresh entity delta = %+v, want Min %+v", ev.Delta, rng.Min)
	}
	if ev.Category != model.CategoryDelay || ev.StationID != "union" || ev.EntityID != "a" {
		t.Fatalf("event record fields wrong: %+v", ev)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("event missing id or timestamp: %+v", ev)
	}

	if ev2 := ee.EventFor(model.CategoryDelay, "union", spent); ev2.Delta != rng.Max {
		t.Fatalf("spent entity delta = %+v, want Max %+v", ev2.Delta, rng.Max)
	}
}

func TestCollisionPair(t *testing.T) {
	ee := newTestEngine()
	a := model.EntityState{ID: "zeta", StationID: "union", Energy: 1}
	b := model.EntityState{ID: "alpha", StationID: "union", Energy: 0.2, Entropy: 0.9}

	events := ee.CollisionPair("union", a, b)
	if len(events) != 2 {
		t.Fatalf("CollisionPair produced %d events, want 2", len(events))
	}
	if events[0].EntityID != "alpha" || events[1].EntityID != "zeta" {
		t.Fatalf("records not in entity-id order: %s, %s", events[0].EntityID, events[1].EntityID)
	}
	if events[0].Meta["other_entity"] != "zeta" || events[1].Meta["other_entity"] != "alpha" {
		t.Fatalf("records do not cross-reference: %v / %v", events[0].Meta, events[1].Meta)
	}
	// Both participants take the same fixed-severity hit regardless of
	// their individual stress.
	if events[0].Delta != events[1].Delta {
		t.Fatalf("collision deltas differ: %+v vs %+v", events[0].Delta, events[1].Delta)
	}
	rng, _ := CategoryRange(model.CategoryCollision)
	if want := rng.Interpolate(0.5); events[0].Delta != want {
		t.Fatalf("collision delta = %+v, want fixed severity %+v", events[0].Delta, want)
	}
	if !events[0].Timestamp.Equal(events[1].Timestamp) {
		t.Fatalf("collision timestamps differ")
	}
	if events[0].ID == events[1].ID {
		t.Fatalf("collision events share an id: %s", events[0].ID)
	}

	if got := ee.CollisionPair("union", a, a); got != nil {
		t.Fatalf("self-collision produced events: %v", got)
	}
}

func TestExternalShockBroadcast(t *testing.T) {
	ee := newTestEngine()
	entities := []model.EntityState{
		{ID: "c", StationID: "forge", Energy: 1},
		{ID: "a", StationID: "harbor", Energy: 0.1},
		{ID: "b", StationID: "union", Energy: 0.5},
	}
	meta := map[string]string{"cause": "storm"}

	events := ee.ExternalShock(entities, 0.8, meta)
	if len(events) != 3 {
		t.Fatalf("broadcast produced %d events, want 3", len(events))
	}
	for i, want := range []string{"a", "b", "c"} {
		if events[i].EntityID != want {
			t.Fatalf("event %d for %s, want %s", i, events[i].EntityID, want)
		}
	}
	rng, _ := CategoryRange(model.CategoryExternal)
	want := rng.Interpolate(0.8)
	for _, ev := range events {
		if ev.Category != model.CategoryExternal {
			t.Fatalf("category = %v", ev.Category)
		}
		if ev.Delta != want {
			t.Fatalf("delta = %+v, want magnitude-interpolated %+v", ev.Delta, want)
		}
		if ev.Meta["cause"] != "storm" {
			t.Fatalf("meta not propagated: %v", ev.Meta)
		}
	}
	// The metadata map is copied per record, not shared.
	events[0].Meta["cause"] = "mutated"
	if events[1].Meta["cause"] != "storm" || meta["cause"] != "storm" {
		t.Fatalf("metadata map shared between records")
	}

	if got := ee.ExternalShock(nil, 0.5, nil); got != nil {
		t.Fatalf("empty broadcast produced events: %v", got)
	}
}

func TestAbortEvent(t *testing.T) {
	ee := newTestEngine()
	e := model.EntityState{ID: "a", StationID: "forge", Energy: 0.4, Entropy: 0.3, Risk: 0.2}

	ev := ee.AbortEvent(e)
	if ev.Category != model.CategoryEndAbort {
		t.Fatalf("abort category = %v", ev.Category)
	}
	if ev.StationID != "forge" || ev.EntityID != "a" {
		t.Fatalf("abort record fields wrong: %+v", ev)
	}
	rng, _ := CategoryRange(model.CategoryEndAbort)
	if want := rng.Interpolate(ContextFactor(e)); ev.Delta != want {
		t.Fatalf("abort delta = %+v, want %+v", ev.Delta, want)
	}
}
