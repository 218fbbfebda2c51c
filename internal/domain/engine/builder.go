package engine

import (
	"time"

	"github.com/okian/cricscore/internal/domain/model"
)

// build stamps the over and ball-in-over from the legal balls bowled so far.
// Deliveries that don't count keep the number the next legal ball will take.
func build(inn *model.Innings, in model.DeliveryInput, now time.Time) model.Delivery {
	legal := inn.Balls
	ballInOver := legal % model.BallsPerOver
	if in.CountsAsBall {
		ballInOver++
	}
	d := model.Delivery{
		Over:         legal / model.BallsPerOver,
		BallInOver:   ballInOver,
		StrikerID:    in.StrikerID,
		NonStrikerID: in.NonStrikerID,
		BowlerID:     in.BowlerID,
		RunsOffBat:   in.RunsOffBat,
		Extras:       in.Extras,
		Dismissal:    in.Dismissal,
		CountsAsBall: in.CountsAsBall,
		Timestamp:    now,
	}
	return d.Clone()
}
