package engine

import "fmt"

// Channel identifies which attribute of a stimulus is tracked.
type Channel int

const (
	// Sound is the auditory channel.
	Sound Channel = iota
	// Position is the visual-position channel.
	Position

	numChannels = 2
)

// Channels lists every channel in index order.
var Channels = []Channel{Sound, Position}

// String returns the lower-case channel name used in records and scenarios.
func (c Channel) String() string {
	switch c {
	case Sound:
		return "sound"
	case Position:
		return "position"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Valid reports whether c is one of the defined channels.
func (c Channel) Valid() bool {
	return c >= 0 && c < numChannels
}

// ParseChannel parses "sound" or "position".
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "sound":
		return Sound, nil
	case "position":
		return Position, nil
	default:
		return 0, fmt.Errorf("unknown channel %q: must be sound or position", s)
	}
}

// ClaimResult is the outcome of a match claim.
type ClaimResult int

const (
	// AlreadyClaimed means the channel was already claimed this tick.
	// Nothing was scored.
	AlreadyClaimed ClaimResult = iota
	// Hit means the claim was a correct n-back match.
	Hit
	// Strike means the claim was incorrect.
	Strike
)

func (r ClaimResult) String() string {
	switch r {
	case AlreadyClaimed:
		return "already_claimed"
	case Hit:
		return "hit"
	case Strike:
		return "strike"
	default:
		return fmt.Sprintf("claim_result(%d)", int(r))
	}
}

// ParseClaimResult parses the String form of a ClaimResult.
func ParseClaimResult(s string) (ClaimResult, error) {
	switch s {
	case "already_claimed":
		return AlreadyClaimed, nil
	case "hit":
		return Hit, nil
	case "strike":
		return Strike, nil
	default:
		return 0, fmt.Errorf("unknown claim result %q: must be hit, strike or already_claimed", s)
	}
}

// OpportunityPolicy decides which ticks count as match opportunities.
type OpportunityPolicy int

const (
	// OpportunityOnMatch counts a tick when a true n-back match exists on the
	// channel. Misses are then Opportunities - Hits.
	OpportunityOnMatch OpportunityPolicy = iota
	// OpportunityOnComparable counts every tick at which an n-back stimulus
	// exists, whether or not it matches.
	OpportunityOnComparable
)

func (p OpportunityPolicy) String() string {
	switch p {
	case OpportunityOnMatch:
		return "match"
	case OpportunityOnComparable:
		return "comparable"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseOpportunityPolicy parses "match" or "comparable". The empty string
// selects the default, OpportunityOnMatch.
func ParseOpportunityPolicy(s string) (OpportunityPolicy, error) {
	switch s {
	case "", "match":
		return OpportunityOnMatch, nil
	case "comparable":
		return OpportunityOnComparable, nil
	default:
		return 0, fmt.Errorf("unknown opportunity policy %q: must be match or comparable", s)
	}
}
