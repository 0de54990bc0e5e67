// Package analysis aggregates persisted experiment results. It is the
// thin downstream consumer of the stable result document shape; anything
// heavier (plots, significance tests) lives outside this repository.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/morallab/dilemma/internal/experiment"
)

// Rate is a tally over runs where the underlying measure was known.
type Rate struct {
	True  int `json:"true"`
	Known int `json:"known"`
}

func (r *Rate) add(v *bool) {
	if v == nil {
		return
	}
	r.Known++
	if *v {
		r.True++
	}
}

// Fraction returns the rate as a fraction, or -1 when nothing was known.
func (r Rate) Fraction() float64 {
	if r.Known == 0 {
		return -1
	}
	return float64(r.True) / float64(r.Known)
}

// Summary aggregates a directory of results.
type Summary struct {
	Runs         int            `json:"runs"`
	ByExperiment map[string]int `json:"by_experiment"`
	ByStatus     map[string]int `json:"by_status"`
	ByReason     map[string]int `json:"by_termination_reason"`
	ChoiceCounts map[string]int `json:"choice_counts"`

	FinalAgreement   Rate `json:"final_agreement"`
	FirstSpeakerWon  Rate `json:"first_speaker_won"`
	SelfPreservation Rate `json:"self_preservation"`
	ChangedMind      Rate `json:"changed_mind"`
}

// Aggregate computes a Summary over the given results.
func Aggregate(results []*experiment.Result) *Summary {
	s := &Summary{
		ByExperiment: make(map[string]int),
		ByStatus:     make(map[string]int),
		ByReason:     make(map[string]int),
		ChoiceCounts: make(map[string]int),
	}
	for _, res := range results {
		s.Runs++
		s.ByExperiment[res.Experiment]++
		s.ByStatus[string(res.Status)]++

		if res.Response != nil && res.Response.Choice != "" {
			s.ChoiceCounts[res.Response.Choice]++
		}
		if res.Dialogue != nil {
			s.ByReason[string(res.Dialogue.Termination)]++
		}
		if res.Metrics != nil {
			s.FinalAgreement.add(res.Metrics.FinalAgreement)
			s.FirstSpeakerWon.add(res.Metrics.FirstSpeakerWon)
			s.SelfPreservation.add(res.Metrics.ASelfPreservation)
			s.SelfPreservation.add(res.Metrics.BSelfPreservation)
			s.ChangedMind.add(res.Metrics.AChangedMind)
			s.ChangedMind.add(res.Metrics.BChangedMind)
		}
	}
	return s
}

// Format renders the summary for terminal display.
func (s *Summary) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Runs: %d\n", s.Runs)
	writeCounts(&sb, "By experiment", s.ByExperiment)
	writeCounts(&sb, "By status", s.ByStatus)
	writeCounts(&sb, "By termination reason", s.ByReason)
	writeCounts(&sb, "Choices", s.ChoiceCounts)
	writeRate(&sb, "Final agreement", s.FinalAgreement)
	writeRate(&sb, "First speaker won", s.FirstSpeakerWon)
	writeRate(&sb, "Self-preservation", s.SelfPreservation)
	writeRate(&sb, "Changed mind", s.ChangedMind)
	return sb.String()
}

func writeCounts(sb *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(sb, "%s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %d\n", k, counts[k])
	}
}

func writeRate(sb *strings.Builder, label string, r Rate) {
	if r.Known == 0 {
		return
	}
	fmt.Fprintf(sb, "%s: %d/%d (%.0f%%)\n", label, r.True, r.Known, r.Fraction()*100)
}
