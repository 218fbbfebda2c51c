package scorecard

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// RenderText writes c as a plain-text document suitable for sharing.
func RenderText(w io.Writer, c Card) error {
	const op = "scorecard.render_text"
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := &printer{w: tw}

	p.line("Match %s (%d overs)", c.MatchID, c.OversLimit)
	for _, inn := range c.Innings {
		p.line("")
		p.line("Innings %d: %s %d/%d (%s ov)", inn.Number, inn.BattingTeam, inn.Runs, inn.Wickets, inn.Overs)
		if inn.Target > 0 {
			p.line("Target %d, need %d", inn.Target, inn.Required)
		}
		p.line("BATTER\t\tR\tB\t4s\t6s\tSR")
		for _, b := range inn.Batting {
			p.line("%s\t%s\t%d\t%d\t%d\t%d\t%.2f", b.Name, b.HowOut, b.Runs, b.Balls, b.Fours, b.Sixes, b.StrikeRate)
		}
		e := inn.Extras
		p.line("Extras\t(w %d, nb %d, b %d, lb %d, ot %d, pen %d)\t%d", e.Wides, e.NoBalls, e.Byes, e.LegByes, e.Overthrows, e.Penalties, e.Total)
		p.line("")
		p.line("BOWLER\tO\tM\tR\tW\tECON")
		for _, b := range inn.Bowling {
			p.line("%s\t%s\t%d\t%d\t%d\t%.2f", b.Name, b.Overs, b.Maidens, b.Runs, b.Wickets, b.Economy)
		}
		// Flush per innings so each table aligns on its own columns.
		p.flush()
	}
	p.line("")
	p.line("Result: %s", c.Result.Text)
	p.flush()

	if p.err != nil {
		return fmt.Errorf("%s: %w", op, p.err)
	}
	return nil
}

// printer keeps the first write error and ignores the rest.
type printer struct {
	w   *tabwriter.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) flush() {
	if p.err != nil {
		return
	}
	p.err = p.w.Flush()
}
