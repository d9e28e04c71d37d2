package model

// Mission is one run through the metro: starting it spawns a single entity
// at the start station, ending it stops auto-advancement. Accumulated
// event IDs survive the mission's end.
type Mission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	StartStationID string `json:"start_station_id"`
	// EndStationID is the optional goal; empty means the mission is
	// open-ended and only an exit station or an explicit end stops it.
	EndStationID string `json:"end_station_id,omitempty"`

	EntityID string   `json:"entity_id,omitempty"`
	EventIDs []string `json:"event_ids,omitempty"`
	Active   bool     `json:"active"`
}
