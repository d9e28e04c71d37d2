package core

import (
	"time"

	"github.com/signalsfoundry/metroline-simulator/model"
)

// testModel is the shared fixture topology: a linear red line ending at an
// exit, a circular loop line, and a transfer hub bridging the two.
//
//	harbor - market - union - forge - summit(exit)
//	                    |
//	            garden - archive - mills   (circular through union)
func testModel() model.MetroModel {
	return model.MetroModel{
		Stations: []model.Station{
			{ID: "harbor", Label: "Harbor", X: 0, Y: 0},
			{ID: "market", Label: "Market", X: 1, Y: 0},
			{ID: "union", Label: "Union", X: 2, Y: 0, IsTransfer: true, TransferLines: []string{"red", "loop"}},
			{ID: "forge", Label: "Forge", X: 3, Y: 0},
			{ID: "summit", Label: "Summit", X: 4, Y: 0, IsExit: true},
			{ID: "garden", Label: "Garden", X: 2, Y: 1},
			{ID: "archive", Label: "Archive", X: 3, Y: 2, ForcedCategory: model.CategoryDiscovery},
			{ID: "mills", Label: "Mills", X: 1, Y: 2},
		},
		Lines: []model.Line{
			{ID: "red", Name: "Red", Color: "#d33", StationIDs: []string{"harbor", "market", "union", "forge", "summit"}},
			{ID: "loop", Name: "Loop", Color: "#39c", StationIDs: []string{"union", "garden", "archive", "mills"}, IsCircular: true},
		},
		Transfers: []model.Transfer{
			{StationID: "union", LineOptions: []string{"red", "loop"}, SwitchCost: 2},
		},
	}
}

// ringModel is a standalone circular line with no transfer or exit flags,
// used by the stable-loop tests.
func ringModel() model.MetroModel {
	return model.MetroModel{
		Stations: []model.Station{
			{ID: "p", X: 0, Y: 0},
			{ID: "q", X: 1, Y: 0},
			{ID: "r", X: 1, Y: 1},
			{ID: "s", X: 0, Y: 1},
		},
		Lines: []model.Line{
			{ID: "ring", Name: "Ring", StationIDs: []string{"p", "q", "r", "s"}, IsCircular: true},
		},
	}
}

// fixedClock returns a deterministic clock that advances one second per
// call, so event timestamps are stable and strictly increasing in tests.
func fixedClock() func() time.Time {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestController(opts ...Option) *SimulationController {
	base := []Option{WithClock(fixedClock())}
	return NewController(NewTopology(testModel()), append(base, opts...)...)
}
