package core

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/metroline-simulator/model"
)

var (
	ErrUnknownStation   = errors.New("line references unknown station")
	ErrUnknownLine      = errors.New("transfer references unknown line")
	ErrDanglingTransfer = errors.New("transfer references unknown station")
	ErrEmptyLine        = errors.New("line has no stations")
	ErrBadCategory      = errors.New("station forces unknown event category")
)

// Topology is the immutable lookup index over a MetroModel: stations and
// lines by ID, lines per station, and adjacency. Two stations are adjacent
// when they are consecutive in some line's sequence; circular lines wrap
// last to first.
//
// Construction is tolerant: dangling references never panic and never
// produce edges, they are surfaced as configuration problems by Validate.
type Topology struct {
	model model.MetroModel

	stations  map[string]model.Station
	lines     map[string]model.Line
	transfers map[string]model.Transfer

	linesByStation map[string][]string
	adjacency      map[string]map[string]struct{}
}

// NewTopology builds the lookup index for a model.
func NewTopology(m model.MetroModel) *Topology {
	t := &Topology{
		model:          m,
		stations:       make(map[string]model.Station, len(m.Stations)),
		lines:          make(map[string]model.Line, len(m.Lines)),
		transfers:      make(map[string]model.Transfer, len(m.Transfers)),
		linesByStation: make(map[string][]string),
		adjacency:      make(map[string]map[string]struct{}),
	}

	for _, s := range m.Stations {
		t.stations[s.ID] = s
	}
	for _, tr := range m.Transfers {
		t.transfers[tr.StationID] = tr
	}

	for _, line := range m.Lines {
		t.lines[line.ID] = line

		for _, sid := range line.StationIDs {
			// Index membership even for dangling IDs so lookups behave
			// consistently; edges below require both endpoints to exist.
			t.linesByStation[sid] = appendIfMissing(t.linesByStation[sid], line.ID)
		}

		for i := 0; i+1 < len(line.StationIDs); i++ {
			t.addEdge(line.StationIDs[i], line.StationIDs[i+1])
		}
		if line.IsCircular && len(line.StationIDs) > 2 {
			t.addEdge(line.StationIDs[len(line.StationIDs)-1], line.StationIDs[0])
		}
	}

	return t
}

// addEdge records an undirected adjacency between two existing stations.
func (t *Topology) addEdge(a, b string) {
	if a == "" || b == "" || a == b {
		return
	}
	if _, ok := t.stations[a]; !ok {
		return
	}
	if _, ok := t.stations[b]; !ok {
		return
	}
	if t.adjacency[a] == nil {
		t.adjacency[a] = make(map[string]struct{})
	}
	if t.adjacency[b] == nil {
		t.adjacency[b] = make(map[string]struct{})
	}
	t.adjacency[a][b] = struct{}{}
	t.adjacency[b][a] = struct{}{}
}

// Model returns the underlying model document.
func (t *Topology) Model() model.MetroModel { return t.model }

// Station resolves a station by ID.
func (t *Topology) Station(id string) (model.Station, bool) {
	s, ok := t.stations[id]
	return s, ok
}

// Line resolves a line by ID.
func (t *Topology) Line(id string) (model.Line, bool) {
	l, ok := t.lines[id]
	return l, ok
}

// Transfer resolves the transfer description at a station, if any.
func (t *Topology) Transfer(stationID string) (model.Transfer, bool) {
	tr, ok := t.transfers[stationID]
	return tr, ok
}

// LinesFor returns the IDs of every line whose sequence contains the
// station, in insertion order.
func (t *Topology) LinesFor(stationID string) []string {
	return append([]string(nil), t.linesByStation[stationID]...)
}

// Neighbours returns the sorted IDs of all stations adjacent to stationID.
func (t *Topology) Neighbours(stationID string) []string {
	edges := t.adjacency[stationID]
	if len(edges) == 0 {
		return nil
	}
	out := make([]string, 0, len(edges))
	for id := range edges {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Adjacent reports whether two stations are consecutive on some line.
func (t *Topology) Adjacent(a, b string) bool {
	_, ok := t.adjacency[a][b]
	return ok
}

// Distance returns the Euclidean map distance between two stations.
// A missing endpoint yields the unit distance so movement over a dangling
// reference degrades instead of crashing mid-simulation.
func (t *Topology) Distance(a, b string) float64 {
	sa, okA := t.stations[a]
	sb, okB := t.stations[b]
	if !okA || !okB {
		return 1
	}
	dx := sa.X - sb.X
	dy := sa.Y - sb.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Validate runs the load-time configuration pass and returns every
// dangling reference found. The simulation tolerates these at runtime;
// Validate exists so they are reported up front instead of being
// discovered mid-run.
func (t *Topology) Validate() []error {
	var problems []error

	for _, line := range t.model.Lines {
		if len(line.StationIDs) == 0 {
			problems = append(problems, fmt.Errorf("%w: %q", ErrEmptyLine, line.ID))
		}
		for _, sid := range line.StationIDs {
			if _, ok := t.stations[sid]; !ok {
				problems = append(problems, fmt.Errorf("%w: line %q station %q", ErrUnknownStation, line.ID, sid))
			}
		}
	}

	for _, tr := range t.model.Transfers {
		if _, ok := t.stations[tr.StationID]; !ok {
			problems = append(problems, fmt.Errorf("%w: %q", ErrDanglingTransfer, tr.StationID))
		}
		for _, lid := range tr.LineOptions {
			if _, ok := t.lines[lid]; !ok {
				problems = append(problems, fmt.Errorf("%w: transfer at %q line %q", ErrUnknownLine, tr.StationID, lid))
			}
		}
	}

	for _, s := range t.model.Stations {
		for _, lid := range s.TransferLines {
			if _, ok := t.lines[lid]; !ok {
				problems = append(problems, fmt.Errorf("%w: station %q line %q", ErrUnknownLine, s.ID, lid))
			}
		}
		if s.ForcedCategory != "" && !s.ForcedCategory.Valid() {
			problems = append(problems, fmt.Errorf("%w: station %q category %q", ErrBadCategory, s.ID, s.ForcedCategory))
		}
	}

	return problems
}

func appendIfMissing(slice []string, id string) []string {
	for _, v := range slice {
		if v == id {
			return slice
		}
	}
	return append(slice, id)
}
