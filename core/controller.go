package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/metroline-simulator/internal/logging"
	"github.com/signalsfoundry/metroline-simulator/model"
)

// Features gates every optional controller behaviour. Flags are read-only
// from the controller's point of view; when a flag is off the
// corresponding work is skipped entirely, not computed and discarded.
type Features struct {
	// MaxEntities limits the live population; zero means unlimited.
	MaxEntities int
	// Collisions enables the co-location sweep after each move.
	Collisions bool
	// AutoReroute enables rerouting of critical entities toward an exit.
	AutoReroute bool
	// StableLoops enables harmless-cycle detection on path histories.
	StableLoops bool
	// ExternalShocks enables the broadcast shock operation.
	ExternalShocks bool
}

// DefaultFeatures enables everything with a small population cap.
func DefaultFeatures() Features {
	return Features{
		MaxEntities:    32,
		Collisions:     true,
		AutoReroute:    true,
		StableLoops:    true,
		ExternalShocks: true,
	}
}

// MetricsRecorder receives controller-level measurements. Implementations
// must tolerate being called from the controller's locked sections; a nil
// recorder disables recording.
type MetricsRecorder interface {
	RecordEvent(category string)
	RecordCollision()
	RecordReroute()
	SetLiveEntities(n int)
	ObserveStepDuration(d time.Duration)
}

// SimulationController owns the authoritative entity set and the
// append-only event log. It is an instantiable type, never a singleton:
// independent simulations (tests, forecasting sandboxes, parallel
// scenarios) each get their own controller, id generator and clock.
//
// Every operation executes atomically under the controller's lock, so no
// observer can see a half-applied step. Operations that reference a
// missing entity, station, or line are silent no-ops: the controller must
// absorb stale or speculative calls from an asynchronous caller.
type SimulationController struct {
	mu sync.RWMutex

	topo     *Topology
	physics  PhysicsConfig
	features Features
	engine   *EventEngine
	ids      IDGenerator
	now      func() time.Time
	log      logging.Logger
	metrics  MetricsRecorder

	entities map[string]*model.EntityState
	events   []model.MetroEvent
	mission  *model.Mission
}

// Option configures a controller at construction.
type Option func(*SimulationController)

// WithPhysics overrides the default kernel constants.
func WithPhysics(cfg PhysicsConfig) Option {
	return func(c *SimulationController) { c.physics = cfg }
}

// WithFeatures overrides the default feature flags.
func WithFeatures(f Features) Option {
	return func(c *SimulationController) { c.features = f }
}

// WithIDGenerator injects the id source shared by entities and events.
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *SimulationController) { c.ids = ids }
}

// WithClock injects the timestamp source, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *SimulationController) { c.now = now }
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(c *SimulationController) { c.log = log }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *SimulationController) { c.metrics = m }
}

// NewController creates a controller over an immutable topology.
func NewController(topo *Topology, opts ...Option) *SimulationController {
	c := &SimulationController{
		topo:     topo,
		physics:  DefaultPhysicsConfig(),
		features: DefaultFeatures(),
		now:      time.Now,
		log:      logging.Noop(),
		entities: make(map[string]*model.EntityState),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = NewSequentialIDGenerator("")
	}
	c.engine = NewEventEngine(c.ids, c.now)
	return c
}

// Topology returns the controller's topology index.
func (c *SimulationController) Topology() *Topology { return c.topo }

//
// ---------- Entity lifecycle ----------
//

// CreateEntity spawns an entity at a station on a line and emits its Init
// event. Fresh entities start neutral: full energy, zero entropy, zero
// risk. Returns nil without effect when the station is unknown, the line
// does not serve it, or the population cap is reached.
func (c *SimulationController) CreateEntity(stationID, lineID, color string) *model.EntityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createEntityLocked(stationID, lineID, color)
}

func (c *SimulationController) createEntityLocked(stationID, lineID, color string) *model.EntityState {
	station, ok := c.topo.Station(stationID)
	if !ok {
		c.log.Warn(context.Background(), "create entity: unknown station", logging.String("station", stationID))
		return nil
	}
	if lineID != "" {
		if !containsString(c.topo.LinesFor(stationID), lineID) {
			c.log.Warn(context.Background(), "create entity: line does not serve station",
				logging.String("station", stationID), logging.String("line", lineID))
			return nil
		}
	} else if lines := c.topo.LinesFor(stationID); len(lines) > 0 {
		lineID = lines[0]
	}
	if c.features.MaxEntities > 0 && len(c.entities) >= c.features.MaxEntities {
		c.log.Warn(context.Background(), "create entity: population cap reached",
			logging.Int("max", c.features.MaxEntities))
		return nil
	}

	e := model.EntityState{
		ID:        c.ids.NextEntityID(),
		Energy:    1.0,
		Entropy:   0.0,
		Risk:      0.0,
		StationID: stationID,
		LineID:    lineID,
		Color:     color,
	}

	// The Init event sees the pre-arrival state (empty history), then the
	// spawn station opens the history.
	ev := c.engine.EventFor(model.CategoryInit, station.ID, e)
	e = c.physics.ApplyDelta(e, ev.Delta)
	e.PathHistory = append(e.PathHistory, stationID)

	c.entities[e.ID] = &e
	c.appendEvent(ev)
	c.recordPopulation()

	c.log.Info(context.Background(), "entity created",
		logging.String("entity", e.ID), logging.String("station", stationID), logging.String("line", lineID))
	snapshot := e.Clone()
	return &snapshot
}

// RemoveEntity deletes an entity from the live set. Its past events remain
// in the log. Unknown IDs are a no-op.
func (c *SimulationController) RemoveEntity(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entities[id]; !ok {
		return
	}
	delete(c.entities, id)
	c.recordPopulation()
	c.log.Info(context.Background(), "entity removed", logging.String("entity", id))
}

// Entity returns a copy of a live entity's state.
func (c *SimulationController) Entity(id string) (model.EntityState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	if !ok {
		return model.EntityState{}, false
	}
	return e.Clone(), true
}

// Entities returns copies of every live entity, sorted by ID.
func (c *SimulationController) Entities() []model.EntityState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entitySnapshotLocked()
}

// Events returns a copy of the append-only event log, in emission order.
func (c *SimulationController) Events() []model.MetroEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.MetroEvent(nil), c.events...)
}

//
// ---------- Movement ----------
//

// MoveEntity moves a live entity to a destination station: derives the
// movement (and, on a line switch, transfer) delta from the kernel,
// applies it functionally, emits the classified visit event, and, when
// collisions are enabled, sweeps every co-located entity for symmetric
// collision pairs. The sweep is O(population) per move, which is fine for
// the low tens of entities this engine targets.
//
// Unknown entity or station is a silent no-op.
func (c *SimulationController) MoveEntity(entityID, stationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveEntityLocked(entityID, stationID)
}

func (c *SimulationController) moveEntityLocked(entityID, stationID string) {
	e, ok := c.entities[entityID]
	if !ok {
		return
	}
	station, ok := c.topo.Station(stationID)
	if !ok {
		c.log.Warn(context.Background(), "move: unknown station",
			logging.String("entity", entityID), logging.String("station", stationID))
		return
	}

	newLine, transfer := c.resolveLineLocked(e, stationID)
	distance := c.topo.Distance(e.StationID, stationID)

	delta := c.physics.MovementDelta(distance, e.Entropy)
	if transfer {
		switchCost := 1.0
		if tr, ok := c.topo.Transfer(stationID); ok {
			switchCost = tr.SwitchCost
		}
		congestion := c.coLocatedCountLocked(stationID, entityID)
		delta = delta.Add(c.physics.TransferDelta(switchCost, congestion))
	}

	next := c.physics.ApplyDelta(*e, delta)
	next.StationID = stationID
	next.LineID = newLine

	// The visit is classified against the arrived-but-unrecorded state, so
	// a first move still counts the spawn station in the history.
	ev := c.engine.VisitEvent(station, next)
	next = c.physics.ApplyDelta(next, ev.Delta)
	next.PathHistory = append(next.PathHistory, stationID)

	*e = next
	c.appendEvent(ev)

	if c.features.Collisions {
		c.collisionSweepLocked(e)
	}
}

// resolveLineLocked picks the line the entity rides after arriving at
// stationID and whether getting there is a line switch. Staying on the
// current line always wins; otherwise transfer options at the destination
// are preferred, then the destination's first serving line.
func (c *SimulationController) resolveLineLocked(e *model.EntityState, stationID string) (string, bool) {
	lines := c.topo.LinesFor(stationID)
	if containsString(lines, e.LineID) {
		return e.LineID, false
	}
	if tr, ok := c.topo.Transfer(stationID); ok {
		for _, lid := range tr.LineOptions {
			if containsString(lines, lid) {
				return lid, true
			}
		}
	}
	if len(lines) > 0 {
		return lines[0], true
	}
	// Dangling station with no serving line: keep the old line.
	return e.LineID, false
}

func (c *SimulationController) coLocatedCountLocked(stationID, excludeID string) int {
	n := 0
	for id, other := range c.entities {
		if id != excludeID && other.StationID == stationID {
			n++
		}
	}
	return n
}

// collisionSweepLocked emits a symmetric event pair and applies the fixed
// collision penalty to both participants for every entity co-located with
// the mover. Pairs are visited in entity-id order for determinism.
func (c *SimulationController) collisionSweepLocked(mover *model.EntityState) {
	others := make([]string, 0, len(c.entities))
	for id := range c.entities {
		others = append(others, id)
	}
	sort.Strings(others)

	for _, id := range others {
		other := c.entities[id]
		if !DetectCollision(*mover, *other) {
			continue
		}
		pair := c.engine.CollisionPair(mover.StationID, *mover, *other)
		for _, ev := range pair {
			c.appendEvent(ev)
		}
		// CollisionPenalty is the same delta the pair records carry, so
		// replaying the log reproduces this state change exactly.
		penalty := c.physics.CollisionPenalty()
		*mover = c.physics.ApplyDelta(*mover, penalty)
		*other = c.physics.ApplyDelta(*other, penalty)
		if c.metrics != nil {
			c.metrics.RecordCollision()
		}
		c.log.Info(context.Background(), "collision",
			logging.String("station", mover.StationID),
			logging.String("entity_a", pair[0].EntityID),
			logging.String("entity_b", pair[1].EntityID))
	}
}

//
// ---------- Stepping ----------
//

// Step advances the simulation one tick: every live, non-aborted entity
// moves one station along its mission path, with critical entities
// rerouted toward an exit first when autoreroute is enabled. Entities are
// stepped in id order so a step is deterministic for a given state.
// Without an active mission, Step is a no-op.
func (c *SimulationController) Step() {
	start := time.Now()
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.ObserveStepDuration(time.Since(start))
		}
	}()

	if c.mission == nil || !c.mission.Active {
		return
	}

	ids := make([]string, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e, ok := c.entities[id]
		if !ok || e.Aborted {
			continue
		}

		if c.features.AutoReroute && e.IsCritical {
			if path := c.rerouteLocked(e, ""); len(path) > 1 {
				if c.metrics != nil {
					c.metrics.RecordReroute()
				}
				c.log.Info(context.Background(), "crisis reroute",
					logging.String("entity", id), logging.String("next", path[1]))
				c.moveEntityLocked(id, path[1])
				continue
			}
			// Empty reroute means no viable alternative; never auto-move
			// on an empty path.
			continue
		}

		if c.mission.EndStationID == "" || e.StationID == c.mission.EndStationID {
			continue
		}
		path := ShortestPath(c.topo, e.StationID, c.mission.EndStationID)
		if len(path) > 1 {
			c.moveEntityLocked(id, path[1])
		}
	}
}

//
// ---------- Routing ----------
//

// FindPath is the public pathfinding query; see ShortestPath.
func (c *SimulationController) FindPath(from, to string) []string {
	return ShortestPath(c.topo, from, to)
}

// Reroute computes an alternate path for a critical entity toward the
// given exit station, or toward the nearest exit when exitID is empty.
// It returns nil unless the entity is critical and autoreroute is on; an
// empty result means no viable reroute exists.
func (c *SimulationController) Reroute(entityID, exitID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entities[entityID]
	if !ok || !e.IsCritical || !c.features.AutoReroute {
		return nil
	}
	return c.rerouteLocked(e, exitID)
}

func (c *SimulationController) rerouteLocked(e *model.EntityState, exitID string) []string {
	if exitID != "" {
		return ShortestPath(c.topo, e.StationID, exitID)
	}
	var best []string
	for _, s := range c.topo.Model().Stations {
		if !s.IsExit || s.ID == e.StationID {
			continue
		}
		p := ShortestPath(c.topo, e.StationID, s.ID)
		if len(p) == 0 {
			continue
		}
		if best == nil || len(p) < len(best) {
			best = p
		}
	}
	return best
}

//
// ---------- Stable loops ----------
//

// stableLoopRiskBudget is the total risk shock a loop period may carry and
// still count as harmless.
const stableLoopRiskBudget = 0.05

// StableLoop reports whether an entity is stuck in a harmless cycle: its
// recent path history repeats, the repetition gained no risk, and the loop
// passes neither the mission goal nor an exit. Returns the cyclic station
// sequence when found. Gated by the StableLoops feature flag.
func (c *SimulationController) StableLoop(entityID string) (bool, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.features.StableLoops {
		return false, nil
	}
	e, ok := c.entities[entityID]
	if !ok {
		return false, nil
	}

	loop, ok := detectCycle(e.PathHistory)
	if !ok {
		return false, nil
	}

	// Progressing loops are not "stable": a cycle through the goal or an
	// exit is going somewhere.
	for _, sid := range loop {
		if c.mission != nil && c.mission.EndStationID == sid {
			return false, nil
		}
		if s, ok := c.topo.Station(sid); ok && s.IsExit {
			return false, nil
		}
	}

	// Risk-increasing loops are a problem, not a harmless idle. Ordinary
	// progress still carries a tiny context-scaled shock per event, so the
	// last full period is allowed a small budget rather than strictly zero.
	if c.riskGainedLocked(entityID, len(loop)) > stableLoopRiskBudget {
		return false, nil
	}

	return true, loop
}

// riskGainedLocked sums the risk shock of an entity's most recent n events.
func (c *SimulationController) riskGainedLocked(entityID string, n int) float64 {
	sum := 0.0
	seen := 0
	for i := len(c.events) - 1; i >= 0 && seen < n; i-- {
		if c.events[i].EntityID != entityID {
			continue
		}
		sum += c.events[i].Delta.DRisk
		seen++
	}
	return sum
}

//
// ---------- Missions ----------
//

// StartMission begins a mission and spawns its entity at the start
// station. The mission id is caller-supplied so the engine stays free of
// global id state. Returns nil without effect when the start station is
// unknown or a mission is already active.
func (c *SimulationController) StartMission(id, name, startStationID, endStationID string) *model.Mission {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mission != nil && c.mission.Active {
		c.log.Warn(context.Background(), "start mission: another mission is active",
			logging.String("mission", id))
		return nil
	}
	entity := c.createEntityLocked(startStationID, "", "")
	if entity == nil {
		return nil
	}

	m := &model.Mission{
		ID:             id,
		Name:           name,
		StartStationID: startStationID,
		EndStationID:   endStationID,
		EntityID:       entity.ID,
		Active:         true,
	}
	// The spawn's Init event belongs to the mission.
	if n := len(c.events); n > 0 && c.events[n-1].EntityID == entity.ID {
		m.EventIDs = append(m.EventIDs, c.events[n-1].ID)
	}
	c.mission = m
	c.log.Info(context.Background(), "mission started",
		logging.String("mission", id), logging.String("start", startStationID), logging.String("end", endStationID))
	out := *m
	return &out
}

// EndMission stops auto-advancement. Accumulated events are kept.
func (c *SimulationController) EndMission() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mission == nil {
		return
	}
	c.mission.Active = false
	c.log.Info(context.Background(), "mission ended", logging.String("mission", c.mission.ID))
}

// Mission returns a copy of the current mission, if any.
func (c *SimulationController) Mission() (model.Mission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mission == nil {
		return model.Mission{}, false
	}
	m := *c.mission
	m.EventIDs = append([]string(nil), c.mission.EventIDs...)
	return m, true
}

//
// ---------- Triggers ----------
//

// TriggerAbort permanently marks an entity critical: it applies the abort
// penalty, sets the aborted flag (there is no un-abort), and emits the
// terminal EndAbort event. Unknown entities are a no-op.
func (c *SimulationController) TriggerAbort(entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[entityID]
	if !ok {
		return
	}

	// AbortPenalty at the entity's context factor is the same delta the
	// abort event carries; the log stays replayable.
	ev := c.engine.AbortEvent(*e)
	next := c.physics.ApplyDelta(*e, c.physics.AbortPenalty(ContextFactor(*e)))
	next.Aborted = true
	next.IsCritical = true
	*e = next

	c.appendEvent(ev)
	c.log.Info(context.Background(), "entity aborted", logging.String("entity", entityID))
}

// TriggerExternalShock broadcasts one shock delta, interpolated by
// magnitude within the External range, to the named entities. Unknown ids
// are skipped; an empty id list targets every live entity. Skipped
// entirely when the ExternalShocks flag is off.
func (c *SimulationController) TriggerExternalShock(entityIDs []string, magnitude float64, meta map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.features.ExternalShocks {
		return
	}

	var targets []model.EntityState
	if len(entityIDs) == 0 {
		for _, e := range c.entities {
			targets = append(targets, *e)
		}
	} else {
		for _, id := range entityIDs {
			if e, ok := c.entities[id]; ok {
				targets = append(targets, *e)
			}
		}
	}
	if len(targets) == 0 {
		return
	}

	events := c.engine.ExternalShock(targets, magnitude, meta)
	for _, ev := range events {
		e := c.entities[ev.EntityID]
		*e = c.physics.ApplyDelta(*e, ev.Delta)
		c.appendEvent(ev)
	}
	c.log.Info(context.Background(), "external shock",
		logging.Int("entities", len(events)), logging.Any("magnitude", magnitude))
}

//
// ---------- Forecasting ----------
//

// Forecast previews an entity's future under an ordered delta sequence
// without touching the authoritative state. Unknown entities yield nil.
func (c *SimulationController) Forecast(entityID string, deltas []model.PhysicsDelta) []model.EntityState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entities[entityID]
	if !ok {
		return nil
	}
	return c.physics.Forecast(e.Clone(), deltas)
}

//
// ---------- Internals ----------
//

// appendEvent adds to the append-only log and the active mission's
// accumulation. Caller must hold the write lock.
func (c *SimulationController) appendEvent(ev model.MetroEvent) {
	c.events = append(c.events, ev)
	if c.mission != nil && c.mission.Active {
		c.mission.EventIDs = append(c.mission.EventIDs, ev.ID)
	}
	if c.metrics != nil {
		c.metrics.RecordEvent(string(ev.Category))
	}
}

func (c *SimulationController) recordPopulation() {
	if c.metrics != nil {
		c.metrics.SetLiveEntities(len(c.entities))
	}
}

func (c *SimulationController) entitySnapshotLocked() []model.EntityState {
	out := make([]model.EntityState, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsString(slice []string, v string) bool {
	for _, s := range slice {
		if s == v {
			return true
		}
	}
	return false
}
