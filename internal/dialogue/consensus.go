package dialogue

import "strings"

// Predicate decides whether the two most recent turns constitute
// consensus. Scenario-specific rules plug in here; the orchestrator calls
// it after every appended turn once each participant has spoken.
type Predicate func(prev, last *Turn) bool

// ChoiceAgreement is the default consensus rule: both turns carry a
// non-empty extracted choice and the choices match under case folding.
func ChoiceAgreement() Predicate {
	return func(prev, last *Turn) bool {
		if prev == nil || last == nil {
			return false
		}
		if prev.Choice == "" || last.Choice == "" {
			return false
		}
		return strings.EqualFold(prev.Choice, last.Choice)
	}
}

// Never is a predicate that never detects consensus; dialogues run to the
// turn budget. Useful for scripted baselines and tests.
func Never() Predicate {
	return func(_, _ *Turn) bool { return false }
}

// decideTermination applies the termination rules: consensus first, then
// the turn budget. Pure so the rules are testable in isolation.
func decideTermination(d *Dialogue, agree Predicate) (TerminationReason, bool) {
	n := len(d.Turns)
	if agree != nil && n >= len(d.Participants) && n >= 2 {
		if agree(&d.Turns[n-2], &d.Turns[n-1]) {
			return ReasonConsensus, true
		}
	}
	if n >= d.MaxTurns {
		return ReasonMaxTurns, true
	}
	return "", false
}
