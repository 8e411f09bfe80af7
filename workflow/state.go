package workflow

import "fmt"

// State is the position of an order saga.
type State int

const (
	ItemsPending State = iota
	ItemsCreated
	PriceResolved
	OrderPersisted
	Failed
)

var stateNames = [...]string{
	ItemsPending:   "ItemsPending",
	ItemsCreated:   "ItemsCreated",
	PriceResolved:  "PriceResolved",
	OrderPersisted: "OrderPersisted",
	Failed:         "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == OrderPersisted || s == Failed
}

var transitions = map[State][]State{
	ItemsPending:  {ItemsCreated, Failed},
	ItemsCreated:  {PriceResolved, Failed},
	PriceResolved: {OrderPersisted, Failed},
}

// CanTransition reports whether from → to is a legal saga step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
