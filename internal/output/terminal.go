package output

import (
	"fmt"

	"github.com/morallab/dilemma/internal/dialogue"
	"github.com/morallab/dilemma/internal/experiment"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Colorize wraps s with an ANSI color code and reset.
func Colorize(color, s string) string { return color + s + ansiReset }

// Bold wraps s with ANSI bold and reset.
func Bold(s string) string { return ansiBold + s + ansiReset }

// PrintTurn prints a formatted negotiation turn to stdout.
func PrintTurn(turn dialogue.Turn) {
	choice := ""
	if turn.Choice != "" {
		choice = Colorize(ansiCyan, fmt.Sprintf(" -> %s", turn.Choice))
	}
	fmt.Printf("%s %s (%s): %s%s\n",
		Colorize(ansiYellow, fmt.Sprintf("[Turn %d]", turn.Index+1)),
		Bold("Participant "+turn.Role),
		turn.Model,
		turn.Content,
		choice,
	)
}

// PrintDialogueSummary prints the termination outcome of a dialogue.
func PrintDialogueSummary(d *dialogue.Dialogue) {
	color := ansiGreen
	if d.Termination == dialogue.ReasonAborted {
		color = ansiRed
	}
	fmt.Printf("\nTermination: %s after %d turn(s)\n",
		Colorize(ansiBold+color, string(d.Termination)), len(d.Turns))
	if d.Error != "" {
		fmt.Printf("Error: %s\n", Colorize(ansiRed, d.Error))
	}
}

// PrintChoice prints the outcome of a single-choice run.
func PrintChoice(res *experiment.Result) {
	if res.Status == experiment.StatusFailed {
		fmt.Printf("%s %s: %s (%s)\n",
			Colorize(ansiRed, "✗"),
			res.Models[0].ID(),
			res.Error.Message,
			res.Error.Kind)
		return
	}
	choice := res.Response.Choice
	if choice == "" {
		choice = "(no choice extracted)"
	}
	fmt.Printf("%s %s chose %s\n",
		Colorize(ansiGreen, "✓"),
		res.Models[0].ID(),
		Bold(choice))
}

// PrintVerdict prints a judge's consensus verdict.
func PrintVerdict(v *dialogue.Verdict) {
	detected := "No"
	detectedColor := ansiRed
	if v.Detected {
		detected = "Yes"
		detectedColor = ansiGreen
	}
	fmt.Printf("Judge consensus: %s\n", Colorize(ansiBold+detectedColor, detected))
	if v.Position != "" {
		fmt.Printf("Position: %s\n", v.Position)
	}
	fmt.Printf("Agreement score: %s\n", Colorize(ansiYellow, fmt.Sprintf("%d/10", v.Score)))
	if len(v.Dissenters) > 0 {
		fmt.Printf("Dissenters: %v\n", v.Dissenters)
	}
}
