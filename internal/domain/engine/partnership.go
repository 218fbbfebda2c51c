package engine

import "github.com/okian/cricscore/internal/domain/model"

// recordPartnership credits the active pair, wicket or not.
func recordPartnership(inn *model.Innings, runs int, legal bool) {
	p := inn.ActivePartnership()
	if p == nil {
		inn.Partnerships = append(inn.Partnerships, model.Partnership{})
		p = inn.ActivePartnership()
	}
	p.Runs += runs
	if legal {
		p.Balls++
	}
}

// rotateStrike runs after a legal ball. The odd-run and end-of-over checks
// are independent, so an odd run off the last ball swaps twice.
func rotateStrike(inn *model.Innings, batRuns int) {
	if batRuns%2 == 1 {
		swapStrike(inn)
	}
	if inn.Balls%model.BallsPerOver == 0 {
		swapStrike(inn)
	}
}

// swapStrike exchanges the pair. A lone batsman keeps the strike.
func swapStrike(inn *model.Innings) {
	p := inn.ActivePartnership()
	if p == nil || p.Batsman2ID == "" {
		return
	}
	p.Batsman1ID, p.Batsman2ID = p.Batsman2ID, p.Batsman1ID
}
