package engine

import "fmt"

// NotificationKind tags a notification variant on the wire
type NotificationKind string

const (
	KindScoreChanged NotificationKind = "score_changed"
	KindLifeLost     NotificationKind = "life_lost"
	KindGameOver     NotificationKind = "game_over"
)

// Notification is a state change pushed to the host during a tick.
// The set of variants is closed: ScoreChanged, LifeLost and GameEnded.
type Notification interface {
	Kind() NotificationKind
	notification()
}

// ScoreChanged is emitted after the snake eats food
type ScoreChanged struct {
	Score int    `json:"score"`
	Tick  uint64 `json:"tick"`
}

// LifeLost is emitted after a fatal collision. Lives is the count left.
type LifeLost struct {
	Lives int            `json:"lives"`
	Cause CollisionCause `json:"cause"`
	At    Position       `json:"at"`
	Tick  uint64         `json:"tick"`
}

// GameEnded is emitted once, right after the LifeLost that took the last life
type GameEnded struct {
	Score int    `json:"score"`
	Tick  uint64 `json:"tick"`
}

func (ScoreChanged) Kind() NotificationKind { return KindScoreChanged }
func (LifeLost) Kind() NotificationKind     { return KindLifeLost }
func (GameEnded) Kind() NotificationKind    { return KindGameOver }

func (ScoreChanged) notification() {}
func (LifeLost) notification()     {}
func (GameEnded) notification()    {}

// NotificationHandler receives notifications synchronously, inside Tick
type NotificationHandler func(Notification)

// NotificationRecord is the flat JSON form of a notification
type NotificationRecord struct {
	Kind  NotificationKind `json:"kind"`
	Tick  uint64           `json:"tick"`
	Score *int             `json:"score,omitempty"`
	Lives *int             `json:"lives,omitempty"`
	Cause CollisionCause   `json:"cause,omitempty"`
	At    *Position        `json:"at,omitempty"`
}

// Record flattens n into its JSON form
func Record(n Notification) NotificationRecord {
	switch v := n.(type) {
	case ScoreChanged:
		score := v.Score
		return NotificationRecord{Kind: KindScoreChanged, Tick: v.Tick, Score: &score}
	case LifeLost:
		lives, at := v.Lives, v.At
		return NotificationRecord{Kind: KindLifeLost, Tick: v.Tick, Lives: &lives, Cause: v.Cause, At: &at}
	case GameEnded:
		score := v.Score
		return NotificationRecord{Kind: KindGameOver, Tick: v.Tick, Score: &score}
	}
	return NotificationRecord{}
}

// Notification converts the record back into its variant
func (r NotificationRecord) Notification() (Notification, error) {
	switch r.Kind {
	case KindScoreChanged:
		return ScoreChanged{Score: deref(r.Score), Tick: r.Tick}, nil
	case KindLifeLost:
		n := LifeLost{Lives: deref(r.Lives), Cause: r.Cause, Tick: r.Tick}
		if r.At != nil {
			n.At = *r.At
		}
		return n, nil
	case KindGameOver:
		return GameEnded{Score: deref(r.Score), Tick: r.Tick}, nil
	}
	return nil, fmt.Errorf("unknown notification kind %q", r.Kind)
}

// String renders the record for logs and text transports
func (r NotificationRecord) String() string {
	switch r.Kind {
	case KindScoreChanged:
		return fmt.Sprintf("tick %d: score %d", r.Tick, deref(r.Score))
	case KindLifeLost:
		at := Position{}
		if r.At != nil {
			at = *r.At
		}
		return fmt.Sprintf("tick %d: hit %s at (%d,%d), %d lives left", r.Tick, r.Cause, at.X, at.Y, deref(r.Lives))
	case KindGameOver:
		return fmt.Sprintf("tick %d: game over, final score %d", r.Tick, deref(r.Score))
	}
	return fmt.Sprintf("tick %d: %s", r.Tick, r.Kind)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
