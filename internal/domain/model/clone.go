package model

// Clone returns a deep copy of m that shares no maps, slices or pointers with it.
func (m Match) Clone() Match {
	out := m
	out.Teams = Teams{A: m.Teams.A.clone(), B: m.Teams.B.clone()}
	for i := range m.Innings {
		out.Innings[i] = m.Innings[i].clone()
	}
	return out
}

func (t Team) clone() Team {
	out := t
	if t.Players != nil {
		out.Players = append([]Player(nil), t.Players...)
	}
	return out
}

func (inn Innings) clone() Innings {
	out := inn
	if inn.Deliveries != nil {
		out.Deliveries = make([]Delivery, len(inn.Deliveries))
		for i, d := range inn.Deliveries {
			out.Deliveries[i] = d.Clone()
		}
	}
	if inn.Batsmen != nil {
		out.Batsmen = make(map[string]*BatsmanStats, len(inn.Batsmen))
		for id, b := range inn.Batsmen {
			cp := *b
			out.Batsmen[id] = &cp
		}
	}
	if inn.Bowlers != nil {
		out.Bowlers = make(map[string]*BowlerStats, len(inn.Bowlers))
		for id, b := range inn.Bowlers {
			cp := *b
			out.Bowlers[id] = &cp
		}
	}
	if inn.Partnerships != nil {
		out.Partnerships = append([]Partnership(nil), inn.Partnerships...)
	}
	return out
}

// Clone returns a copy of d with its own extras and dismissal.
func (d Delivery) Clone() Delivery {
	out := d
	out.Extras = d.Extras.clone()
	if d.Dismissal != nil {
		cp := *d.Dismissal
		out.Dismissal = &cp
	}
	return out
}

func (e Extras) clone() Extras {
	dup := func(v *int) *int {
		if v == nil {
			return nil
		}
		return Runs(*v)
	}
	return Extras{
		Wide:      dup(e.Wide),
		NoBall:    dup(e.NoBall),
		Bye:       dup(e.Bye),
		LegBye:    dup(e.LegBye),
		Overthrow: dup(e.Overthrow),
		Penalty:   dup(e.Penalty),
	}
}
