// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/metroline-simulator/model"
)

// MetroScenario is a small summary of what was loaded from JSON. It's
// mainly useful for logging or debugging from main().
type MetroScenario struct {
	StationIDs  []string
	LineIDs     []string
	TransferIDs []string
	Problems    []error
}

// internal JSON shapes – keep them unexported so we're free to evolve them.
type metroScenarioJSON struct {
	Stations  []stationJSON  `json:"stations"`
	Lines     []lineJSON     `json:"lines"`
	Transfers []transferJSON `json:"transfers"`
}

type stationJSON struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
	IsTransfer     bool     `json:"is_transfer"`
	TransferLines  []string `json:"transfer_lines"`
	IsExit         bool     `json:"is_exit"`
	ForcedCategory string   `json:"forced_category"`
}

type lineJSON struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	StationIDs []string `json:"ordered_station_ids"`
	IsCircular bool     `json:"is_circular"`
}

type transferJSON struct {
	StationID   string   `json:"station_id"`
	LineOptions []string `json:"line_options"`
	SwitchCost  float64  `json:"switch_cost"`
}

// LoadMetroScenario reads a JSON topology document from r, builds the
// immutable Topology, and returns it with a summary of what was loaded.
//
// It fails only on JSON / structural errors (empty ids, empty document).
// Dangling references are deliberately tolerated here and reported through
// the summary's Problems (from Topology.Validate), so a misconfigured map
// is a load-time report rather than a mid-simulation crash.
func LoadMetroScenario(r io.Reader) (*Topology, *MetroScenario, error) {
	var payload metroScenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("LoadMetroScenario: decode failed: %w", err)
	}
	if len(payload.Stations) == 0 {
		return nil, nil, fmt.Errorf("LoadMetroScenario: no stations in document")
	}

	m := model.MetroModel{}
	result := &MetroScenario{}

	for _, js := range payload.Stations {
		if js.ID == "" {
			return nil, nil, fmt.Errorf("LoadMetroScenario: station with empty id")
		}
		m.Stations = append(m.Stations, model.Station{
			ID:             js.ID,
			Label:          js.Label,
			X:              js.X,
			Y:              js.Y,
			IsTransfer:     js.IsTransfer,
			TransferLines:  append([]string(nil), js.TransferLines...),
			IsExit:         js.IsExit,
			ForcedCategory: model.Category(js.ForcedCategory),
		})
		result.StationIDs = append(result.StationIDs, js.ID)
	}

	for _, jl := range payload.Lines {
		if jl.ID == "" {
			return nil, nil, fmt.Errorf("LoadMetroScenario: line with empty id")
		}
		m.Lines = append(m.Lines, model.Line{
			ID:         jl.ID,
			Name:       jl.Name,
			Color:      jl.Color,
			StationIDs: append([]string(nil), jl.StationIDs...),
			IsCircular: jl.IsCircular,
		})
		result.LineIDs = append(result.LineIDs, jl.ID)
	}

	for _, jt := range payload.Transfers {
		if jt.StationID == "" {
			return nil, nil, fmt.Errorf("LoadMetroScenario: transfer with empty station_id")
		}
		m.Transfers = append(m.Transfers, model.Transfer{
			StationID:   jt.StationID,
			LineOptions: append([]string(nil), jt.LineOptions...),
			SwitchCost:  jt.SwitchCost,
		})
		result.TransferIDs = append(result.TransferIDs, jt.StationID)
	}

	topo := NewTopology(m)
	result.Problems = topo.Validate()
	return topo, result, nil
}
