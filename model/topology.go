package model

// Position is a station's 2D map position, in arbitrary map units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Station is a single node of the metro graph. Stations are immutable once
// loaded; all mutation in the engine happens on entities, never on topology.
type Station struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`

	// IsTransfer marks a station where entities may switch lines.
	IsTransfer    bool     `json:"is_transfer,omitempty"`
	TransferLines []string `json:"transfer_lines,omitempty"`

	// IsExit marks a terminal station; visiting it resolves to EndAbort.
	IsExit bool `json:"is_exit,omitempty"`

	// ForcedCategory, when non-empty, overrides event classification for
	// every visit to this station.
	ForcedCategory Category `json:"forced_category,omitempty"`
}

// Pos returns the station's map position.
func (s Station) Pos() Position { return Position{X: s.X, Y: s.Y} }

// Line is an ordered sequence of stations. On a circular line the last
// station is adjacent to the first.
type Line struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	StationIDs []string `json:"ordered_station_ids"`
	IsCircular bool     `json:"is_circular,omitempty"`
}

// Transfer describes the line switches available at a station and the fixed
// time cost of switching there.
type Transfer struct {
	StationID   string   `json:"station_id"`
	LineOptions []string `json:"line_options"`
	SwitchCost  float64  `json:"switch_cost"`
}

// MetroModel is the aggregate topology document: the only externally
// supplied input to the engine, immutable after load.
type MetroModel struct {
	Stations  []Station  `json:"stations"`
	Lines     []Line     `json:"lines"`
	Transfers []Transfer `json:"transfers,omitempty"`
}
