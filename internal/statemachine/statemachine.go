// Package statemachine defines the legal vehicle state transition table
// (spec §4.1). It is pure and holds no vehicle state itself — model.Vehicle
// embeds State and calls CanTransition to guard its own mutations.
package statemachine

// State is a vehicle's lifecycle state.
type State string

const (
	Available     State = "AVAILABLE"
	Reserved      State = "RESERVED"
	InUse         State = "IN_USE"
	Maintenance   State = "MAINTENANCE"
	EmergencyLock State = "EMERGENCY_LOCK"
	Relocating    State = "RELOCATING"
)

// legal maps each source state to the set of states it may transition to
// directly via transition_to. force_state bypasses this table entirely.
var legal = map[State]map[State]bool{
	Available:     set(Reserved, Maintenance, EmergencyLock, Relocating),
	Reserved:      set(InUse, Available, EmergencyLock),
	InUse:         set(Available, Maintenance, EmergencyLock),
	Maintenance:   set(Available, EmergencyLock),
	EmergencyLock: set(Maintenance, Available),
	Relocating:    set(Available, Maintenance),
}

func set(states ...State) map[State]bool {
	m := make(map[State]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return m
}

// CanTransition reports whether the (from, to) pair is a legal direct
// transition under the table in spec §4.1.
func CanTransition(from, to State) bool {
	targets, ok := legal[from]
	if !ok {
		return false
	}
	return targets[to]
}

// ForcePath returns the sequence of states force_state must pass through to
// reach target when target is not a legal direct transition from from. Per
// spec §4.1, a force that cannot reach target directly routes via AVAILABLE.
// It returns nil when from == target (no-op), and the one-step path
// []State{target} when target is directly reachable or from is AVAILABLE.
func ForcePath(from, target State) []State {
	if from == target {
		return nil
	}
	if CanTransition(from, target) {
		return []State{target}
	}
	if from == Available {
		return []State{target}
	}
	return []State{Available, target}
}
