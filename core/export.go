package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/metroline-simulator/model"
)

// Snapshot is the full, JSON-serializable state export: topology model,
// live entities, the append-only event log, and the active mission. A
// snapshot round-trips losslessly through serialization.
type Snapshot struct {
	Model    model.MetroModel   `json:"model"`
	Entities []model.EntityState `json:"entities"`
	Events   []model.MetroEvent  `json:"events"`
	Mission  *model.Mission      `json:"mission,omitempty"`
}

// Export captures a consistent snapshot of the controller's full state.
func (c *SimulationController) Export() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Model:    c.topo.Model(),
		Entities: c.entitySnapshotLocked(),
		Events:   append([]model.MetroEvent(nil), c.events...),
	}
	if c.mission != nil {
		m := *c.mission
		m.EventIDs = append([]string(nil), c.mission.EventIDs...)
		snap.Mission = &m
	}
	return snap
}

// WriteSnapshot serializes a snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("WriteSnapshot: encode failed: %w", err)
	}
	return nil
}

// ReadSnapshot parses a snapshot previously produced by WriteSnapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("ReadSnapshot: decode failed: %w", err)
	}
	return snap, nil
}

// ImportSnapshot reconstructs a controller from an exported snapshot. The
// usual construction options apply; the restored controller gets a fresh
// topology index built from the snapshot's model.
//
// The injected id generator is the caller's responsibility: restoring into
// a generator whose counters collide with the snapshot's ids would break
// event-id ordering, so callers resuming a run should supply a prefixed
// generator.
func ImportSnapshot(snap Snapshot, opts ...Option) *SimulationController {
	c := NewController(NewTopology(snap.Model), opts...)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range snap.Entities {
		e := snap.Entities[i].Clone()
		c.entities[e.ID] = &e
	}
	c.events = append([]model.MetroEvent(nil), snap.Events...)
	if snap.Mission != nil {
		m := *snap.Mission
		m.EventIDs = append([]string(nil), snap.Mission.EventIDs...)
		c.mission = &m
	}
	c.recordPopulation()
	return c
}
