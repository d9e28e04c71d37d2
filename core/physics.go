package core

import (
	"math"

	"github.com/signalsfoundry/metroline-simulator/model"
)

// PNR weighting. The point-of-no-return score is a fixed weighted sum of
// the entity's depletion, disorder, accumulated risk, and elapsed time.
const (
	pnrEnergyWeight  = 0.30
	pnrEntropyWeight = 0.25
	pnrRiskWeight    = 0.35
	pnrTimeWeight    = 0.10
	pnrTimeScale     = 100.0
)

// PhysicsConfig holds the kernel constants. All kernel operations are pure
// methods on the config: same input, same output, no hidden state.
type PhysicsConfig struct {
	// Velocity converts map distance into travel time.
	Velocity float64
	// Friction is the fixed energy cost of any movement step.
	Friction float64
	// TransferLoss is the additional energy cost of a line switch.
	TransferLoss float64
	// Complexity and Uncertainty multiply into the per-step entropy gain,
	// doubled on a transfer.
	Complexity  float64
	Uncertainty float64
	// TransferShock is the base risk shock of a line switch, scaled by
	// congestion at the destination.
	TransferShock float64
	// CriticalThreshold is the PNR score above which an entity is critical.
	CriticalThreshold float64
}

// DefaultPhysicsConfig returns the default kernel constants. Five ordinary
// movement steps from a fresh entity stay well below the critical
// threshold under these values.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Velocity:          1.0,
		Friction:          0.05,
		TransferLoss:      0.10,
		Complexity:        0.10,
		Uncertainty:       0.30,
		TransferShock:     0.01,
		CriticalThreshold: 0.7,
	}
}

// clamp01 bounds v to [0,1]. Clamp, don't throw, is the single numeric
// policy of the kernel.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TimeStep computes travel time for a distance: higher entropy makes the
// same distance take longer.
func (c PhysicsConfig) TimeStep(distance, entropy float64) float64 {
	v := c.Velocity
	if v <= 0 {
		v = 1
	}
	return distance / v * (1 + entropy)
}

// stepEnergyCost is the energy cost of one step: friction, plus the
// transfer loss when the step switches lines.
func (c PhysicsConfig) stepEnergyCost(transfer bool) float64 {
	cost := c.Friction
	if transfer {
		cost += c.TransferLoss
	}
	return cost
}

// stepEntropyGain is the entropy gained in one step: complexity times
// uncertainty, doubled on a transfer.
func (c PhysicsConfig) stepEntropyGain(transfer bool) float64 {
	gain := c.Complexity * c.Uncertainty
	if transfer {
		gain *= 2
	}
	return gain
}

// UpdateEnergy subtracts the step's energy cost and clamps. The delta
// constructors below carry the same cost, so applying them agrees with
// calling this directly.
func (c PhysicsConfig) UpdateEnergy(energy float64, transfer bool) float64 {
	return clamp01(energy - c.stepEnergyCost(transfer))
}

// UpdateEntropy adds the step's entropy gain and clamps.
func (c PhysicsConfig) UpdateEntropy(entropy float64, transfer bool) float64 {
	return clamp01(entropy + c.stepEntropyGain(transfer))
}

// AccumulateRisk folds an incremental shock into an existing risk value in
// shock space: R = 1 − e^(−Σshocks). The current risk is inverted back to
// its implied shock sum, the new shock added, and the result reconverted,
// which makes risk monotone non-decreasing and asymptotically bounded by 1.
// Negative shocks are ignored; risk has no native decay.
func AccumulateRisk(risk, shock float64) float64 {
	if shock <= 0 {
		return clamp01(risk)
	}
	risk = clamp01(risk)
	if risk >= 1 {
		return 1
	}
	sum := -math.Log(1 - risk)
	return clamp01(1 - math.Exp(-(sum + shock)))
}

// PNR computes the point-of-no-return score from the four state scalars,
// clamped to [0,1].
func (c PhysicsConfig) PNR(energy, entropy, risk, elapsed float64) float64 {
	score := pnrEnergyWeight*(1-energy) +
		pnrEntropyWeight*entropy +
		pnrRiskWeight*risk +
		pnrTimeWeight*math.Min(1, elapsed/pnrTimeScale)
	return clamp01(score)
}

// ApplyDelta returns a new state with the delta folded in: time advanced,
// energy and entropy clamped, the risk component accumulated as a shock,
// and IsCritical recomputed from the updated scalars (an aborted entity
// stays critical regardless of score). The input is never mutated, so
// callers can apply the same delta speculatively.
func (c PhysicsConfig) ApplyDelta(st model.EntityState, d model.PhysicsDelta) model.EntityState {
	out := st
	out.ElapsedTime = st.ElapsedTime + d.DT
	out.Energy = clamp01(st.Energy + d.DEnergy)
	out.Entropy = clamp01(st.Entropy + d.DEntropy)
	out.Risk = AccumulateRisk(st.Risk, d.DRisk)
	out.IsCritical = out.Aborted || c.PNR(out.Energy, out.Entropy, out.Risk, out.ElapsedTime) > c.CriticalThreshold
	return out
}

// MovementDelta is the cost of an ordinary step between adjacent stations.
func (c PhysicsConfig) MovementDelta(distance, entropy float64) model.PhysicsDelta {
	return model.PhysicsDelta{
		DT:       c.TimeStep(distance, entropy),
		DEnergy:  -c.stepEnergyCost(false),
		DEntropy: c.stepEntropyGain(false),
	}
}

// TransferDelta is the additional cost of a line switch on top of the
// movement delta: the transfer's fixed switch cost in time, the transfer
// energy loss, one more entropy gain (doubling the step's total), and a
// congestion-scaled risk shock. Congestion is the number of other entities
// at the transfer station.
func (c PhysicsConfig) TransferDelta(switchCost float64, congestion int) model.PhysicsDelta {
	if congestion < 0 {
		congestion = 0
	}
	return model.PhysicsDelta{
		DT:       switchCost,
		DEnergy:  c.stepEnergyCost(false) - c.stepEnergyCost(true),
		DEntropy: c.stepEntropyGain(true) - c.stepEntropyGain(false),
		DRisk:    c.TransferShock * float64(1+congestion),
	}
}

// CollisionPenalty is the cost applied to each participant of a two-entity
// collision: the Collision category's range at its fixed severity, so the
// delta carried by the collision event records is the delta applied to the
// participants.
func (c PhysicsConfig) CollisionPenalty() model.PhysicsDelta {
	return eventCatalog[model.CategoryCollision].Interpolate(collisionSeverityFixed)
}

// AbortPenalty is the cost of a user-triggered abort: the EndAbort
// category's range interpolated by the entity's context factor, matching
// the delta carried by the abort event record.
func (c PhysicsConfig) AbortPenalty(factor float64) model.PhysicsDelta {
	return eventCatalog[model.CategoryEndAbort].Interpolate(factor)
}

// Forecast folds an ordered delta sequence into the future states it
// produces, without touching the input: element i is the state after
// deltas[0..i] have been applied. An empty sequence returns no states.
func (c PhysicsConfig) Forecast(st model.EntityState, deltas []model.PhysicsDelta) []model.EntityState {
	out := make([]model.EntityState, 0, len(deltas))
	cur := st.Clone()
	for _, d := range deltas {
		cur = c.ApplyDelta(cur, d)
		out = append(out, cur)
	}
	return out
}

// DetectCollision reports whether two entities collide: same current
// station, different IDs. Symmetric, and false for an entity against
// itself regardless of location.
func DetectCollision(a, b model.EntityState) bool {
	if a.ID == b.ID {
		return false
	}
	return a.StationID != "" && a.StationID == b.StationID
}
