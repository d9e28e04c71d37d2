package model

// PhysicsDelta is the universal unit of state mutation: four signed
// scalars applied to an entity's time, energy, entropy, and risk. Deltas
// are always produced by a pure kernel function and applied functionally;
// nothing in the engine hand-builds one ad hoc.
//
// The risk component is a shock, not an absolute change: it is accumulated
// in shock space (see core.AccumulateRisk), which keeps risk monotone.
type PhysicsDelta struct {
	DT       float64 `json:"dt"`
	DEnergy  float64 `json:"dE"`
	DEntropy float64 `json:"dS"`
	DRisk    float64 `json:"dR"`
}

// Add returns the component-wise sum of two deltas.
func (d PhysicsDelta) Add(other PhysicsDelta) PhysicsDelta {
	return PhysicsDelta{
		DT:       d.DT + other.DT,
		DEnergy:  d.DEnergy + other.DEnergy,
		DEntropy: d.DEntropy + other.DEntropy,
		DRisk:    d.DRisk + other.DRisk,
	}
}

// IsZero reports whether every component is exactly zero.
func (d PhysicsDelta) IsZero() bool {
	return d == PhysicsDelta{}
}
