// Package scorecard turns a match into read-only views: the result line, a
// tabular scorecard and a plain-text export of it.
package scorecard

import (
	"fmt"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/internal/domain/types"
)

// InProgress is the result text of a match that is still live.
const InProgress = "In progress"

// Outcome is the decided (or pending) result of a match.
type Outcome struct {
	Winner *types.Side `json:"winner,omitempty"`
	Margin string      `json:"margin,omitempty"`
	IsTie  bool        `json:"is_tie"`
	Text   string      `json:"text"`
}

// Result decides the match outcome. A chase that reached the target wins by
// the wickets in hand of the chasing squad; level totals are a tie; anything
// else is a win for the side batting first by the run difference.
func Result(m model.Match) Outcome {
	if !m.Completed() {
		return Outcome{Text: InProgress}
	}

	first, second := &m.Innings[0], &m.Innings[1]
	switch {
	case second.TotalRuns >= m.Target():
		side := second.BattingTeam
		left := max(len(m.BattingTeam(second).Players)-1-second.Wickets, 0)
		margin := plural(left, "wicket")
		return Outcome{
			Winner: &side,
			Margin: margin,
			Text:   fmt.Sprintf("%s won by %s", m.BattingTeam(second).Name, margin),
		}
	case second.TotalRuns == first.TotalRuns:
		return Outcome{IsTie: true, Text: "Match tied"}
	default:
		side := first.BattingTeam
		margin := plural(first.TotalRuns-second.TotalRuns, "run")
		return Outcome{
			Winner: &side,
			Margin: margin,
			Text:   fmt.Sprintf("%s won by %s", m.BattingTeam(first).Name, margin),
		}
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
