package strategy

// Stance is a car's high-level role, assigned by the team captain.
type Stance int

const (
	StanceUndefined Stance = iota
	StanceKickoff
	StanceAttack
	StanceDefense
	StanceClear
	StanceBoost
	StanceRecovery
	StancePreemptiveDefense
)

var stanceNames = [...]string{
	StanceUndefined:         "UNDEFINED",
	StanceKickoff:           "KICKOFF",
	StanceAttack:            "ATTACK",
	StanceDefense:           "DEFENSE",
	StanceClear:             "CLEAR",
	StanceBoost:             "BOOST",
	StanceRecovery:          "RECOVERY",
	StancePreemptiveDefense: "PREEMPTIVE_DEFENSE",
}

func (s Stance) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return stanceNames[s]
}

// Valid reports whether s is one of the known stances.
func (s Stance) Valid() bool { return s >= 0 && int(s) < len(stanceNames) }

// Defensive reports whether s keeps the car between the ball and its own goal.
func (s Stance) Defensive() bool {
	return s == StanceDefense || s == StancePreemptiveDefense
}
