package model

// EntityState is the live physics state of one simulated entity.
//
// Energy, Entropy, and Risk are always clamped to [0,1]; IsCritical is
// recomputed from the post-update scalars on every delta application and
// is never stale. Entities are created by an explicit create operation,
// mutated only through delta application, and removed only by an explicit
// remove operation or mission end.
type EntityState struct {
	ID          string  `json:"entity_id"`
	ElapsedTime float64 `json:"elapsed_time"`
	Energy      float64 `json:"energy"`
	Entropy     float64 `json:"entropy"`
	Risk        float64 `json:"risk"`

	StationID string `json:"station_id"`
	LineID    string `json:"line_id"`

	// PathHistory is the append-only list of station IDs visited.
	PathHistory []string `json:"path_history"`

	Color string `json:"color,omitempty"`

	// Aborted is set by the abort operation and never cleared; an aborted
	// entity stays critical regardless of its PNR score.
	Aborted bool `json:"aborted,omitempty"`

	IsCritical bool `json:"is_critical"`
}

// Clone returns a deep copy, including the path history backing array.
// Forecasting and export work on clones so the authoritative state is
// never touched.
func (e EntityState) Clone() EntityState {
	out := e
	out.PathHistory = append([]string(nil), e.PathHistory...)
	return out
}
