package components

import "fmt"

// Behavior identifies the current state of an agent's goal state machine.
type Behavior uint8

const (
	BehaviorNone Behavior = iota
	ToPath
	ToWaypoint
	ToTarget
	ToFriend
	ToFlee
	ToHerd
	ToFood
	Food
	ToWater
	Water
	ToRepose
	Repose
	Contest
	Battle
	ToHunt
	Hunt

	numBehaviors
)

var behaviorNames = [numBehaviors]string{
	BehaviorNone: "None",
	ToPath:       "ToPath",
	ToWaypoint:   "ToWaypoint",
	ToTarget:     "ToTarget",
	ToFriend:     "ToFriend",
	ToFlee:       "ToFlee",
	ToHerd:       "ToHerd",
	ToFood:       "ToFood",
	Food:         "Food",
	ToWater:      "ToWater",
	Water:        "Water",
	ToRepose:     "ToRepose",
	Repose:       "Repose",
	Contest:      "Contest",
	Battle:       "Battle",
	ToHunt:       "ToHunt",
	Hunt:         "Hunt",
}

// String returns the behavior tag name.
func (b Behavior) String() string {
	if b < numBehaviors {
		return behaviorNames[b]
	}
	return fmt.Sprintf("Behavior(%d)", uint8(b))
}

// Valid reports whether b is one of the known tags.
func (b Behavior) Valid() bool {
	return b < numBehaviors
}

// ParseBehavior maps a tag name back to its Behavior.
func ParseBehavior(s string) (Behavior, error) {
	for i, name := range behaviorNames {
		if name == s {
			return Behavior(i), nil
		}
	}
	return BehaviorNone, fmt.Errorf("unknown behavior %q", s)
}

// AllBehaviors returns every known tag except BehaviorNone.
func AllBehaviors() []Behavior {
	out := make([]Behavior, 0, numBehaviors-1)
	for b := ToPath; b < numBehaviors; b++ {
		out = append(out, b)
	}
	return out
}

// IsHunting reports an approach or chase of prey.
func (b Behavior) IsHunting() bool {
	return b == ToHunt || b == Hunt
}

// IsFighting reports hunting, battling or closing in on a scripted enemy.
func (b Behavior) IsFighting() bool {
	return b.IsHunting() || b == Battle || b == ToTarget
}

// IsEscalated reports states that suppress the enemy scan.
func (b Behavior) IsEscalated() bool {
	return b == ToFlee || b.IsFighting()
}

// IsEating reports food seeking or eating.
func (b Behavior) IsEating() bool {
	return b == ToFood || b == Food
}

// IsDrinking reports water seeking or drinking.
func (b Behavior) IsDrinking() bool {
	return b == ToWater || b == Water
}

// Transitions lists the edges the executor may take from each state.
// Any state may also terminate to BehaviorNone, and sensors may assign
// any approach state over an existing goal.
var Transitions = map[Behavior][]Behavior{
	ToWaypoint: {Repose, Food, Water},
	ToTarget:   {Battle},
	ToFlee:     {ToFlee},
	ToHerd:     {Contest},
	ToFood:     {Food},
	Food:       {ToFood},
	ToWater:    {Water},
	ToRepose:   {Repose},
	Battle:     {ToHunt, ToTarget, ToFood},
	ToHunt:     {Hunt, ToFood},
	Hunt:       {Battle, ToHunt, ToFood},
}

// CanTransition reports whether the executor may move from one state to another.
func CanTransition(from, to Behavior) bool {
	if to == BehaviorNone || from == to {
		return true
	}
	for _, b := range Transitions[from] {
		if b == to {
			return true
		}
	}
	return false
}
