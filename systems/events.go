package systems

// DeathCause tells why an agent died.
type DeathCause uint8

const (
	CauseStarved DeathCause = iota
	CauseKilled
)

func (c DeathCause) String() string {
	if c == CauseKilled {
		return "killed"
	}
	return "starved"
}

// BiteEvent is emitted for every bite attempt.
type BiteEvent struct {
	Attacker uint32
	Victim   uint32
	Species  string // attacker species
	Damage   float64
	Landed   bool
}

// DeathEvent is emitted once when an agent dies.
type DeathEvent struct {
	Agent   uint32
	Species string
	Cause   DeathCause
	Killer  uint32 // zero unless Cause is CauseKilled
}

// Observer receives combat and life-cycle events, typically a telemetry
// collector.
type Observer interface {
	RecordBite(ev BiteEvent)
	RecordDeath(ev DeathEvent)
}

type nopObserver struct{}

func (nopObserver) RecordBite(BiteEvent)   {}
func (nopObserver) RecordDeath(DeathEvent) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
