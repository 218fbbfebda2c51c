// Package types contains the small enumerations shared across the application.
package types

// Side identifies one of the two teams in a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Valid reports whether s is A or B.
func (s Side) Valid() bool { return s == SideA || s == SideB }

// TossDecision is what the toss winner chose to do.
type TossDecision string

const (
	TossBat   TossDecision = "BAT"
	TossField TossDecision = "FIELD"
)

// Valid reports whether d is a known decision.
func (d TossDecision) Valid() bool { return d == TossBat || d == TossField }

// Status is the lifecycle state of a match.
type Status string

const (
	StatusLive      Status = "LIVE"
	StatusCompleted Status = "COMPLETED"
)

// DismissalType enumerates the ways a batsman can be out.
type DismissalType string

const (
	Bowled    DismissalType = "BOWLED"
	Caught    DismissalType = "CAUGHT"
	LBW       DismissalType = "LBW"
	RunOut    DismissalType = "RUN_OUT"
	Stumped   DismissalType = "STUMPED"
	HitWicket DismissalType = "HIT_WICKET"
	Retired   DismissalType = "RETIRED"
)

// CreditsBowler reports whether the bowler is credited with the wicket.
func (t DismissalType) CreditsBowler() bool {
	return t != RunOut && t != Retired
}

// Valid reports whether t is a known dismissal type.
func (t DismissalType) Valid() bool {
	switch t {
	case Bowled, Caught, LBW, RunOut, Stumped, HitWicket, Retired:
		return true
	}
	return false
}
