package engine

import "fmt"

// KeyPress records the direction for the next move. Between two ticks the
// last key pressed wins. Reversal onto the neck is filtered at tick time, so
// pressing the opposite key and then a perpendicular one still turns.
func (e *GameEngine) KeyPress(direction Direction) {
	if !direction.Valid() || e.state.RunState == GameOver {
		return
	}
	e.state.PendingDirection = direction
	if e.state.RunState == NotStarted && e.config.Autostart == AutostartFirstKey {
		e.Start()
	}
}

// KeyPressCode maps a raw host key code and forwards it to KeyPress.
// It reports whether the code was a movement key.
func (e *GameEngine) KeyPressCode(code string) bool {
	direction, ok := ParseDirection(code)
	if !ok {
		return false
	}
	e.KeyPress(direction)
	return true
}

// Tick advances the game by one step and returns the run state afterwards.
// Outside Running it does nothing.
func (e *GameEngine) Tick() RunState {
	if e.state.RunState != Running {
		return e.state.RunState
	}

	e.state.TickCount++
	if e.state.TickCount%uint64(e.config.TicksPerMove) != 0 {
		return e.state.RunState
	}

	direction := e.resolveDirection()
	head := e.state.Snake[0]
	dx, dy := direction.Delta()
	next := head.Add(dx, dy)

	growing := e.state.Food != nil && next == *e.state.Food

	if cause, hit := e.collides(next, growing); hit {
		e.loseLife(cause, next)
		return e.state.RunState
	}

	e.state.Direction = direction
	e.state.PendingDirection = direction
	e.state.Snake = append([]Position{next}, e.state.Snake...)
	e.state.Moves++

	if growing {
		e.state.Score += e.config.ScoreIncrement
		e.state.FoodEaten++
		e.state.Message = fmt.Sprintf(e.config.Messages.Food, e.state.Score)
		e.placeFood()
		e.notify(ScoreChanged{Score: e.state.Score, Tick: e.state.TickCount})
	} else {
		e.state.Snake = e.state.Snake[:len(e.state.Snake)-1]
	}

	return e.state.RunState
}

// resolveDirection applies the anti-reversal guard: a pending direction that
// would put the head on the second segment is dropped in favour of the
// current one. A snake of length one has no neck and may reverse.
func (e *GameEngine) resolveDirection() Direction {
	pending := e.state.PendingDirection
	if !pending.Valid() {
		return e.state.Direction
	}
	if len(e.state.Snake) > 1 {
		dx, dy := pending.Delta()
		if e.state.Snake[0].Add(dx, dy) == e.state.Snake[1] {
			return e.state.Direction
		}
	}
	return pending
}

// collides checks the candidate head. The tail cell is vacated by a normal
// move, so it only counts as body while the snake is growing.
func (e *GameEngine) collides(next Position, growing bool) (CollisionCause, bool) {
	if !e.playable(next) {
		return CauseWall, true
	}
	body := e.state.Snake
	if !growing {
		body = body[:len(body)-1]
	}
	for _, segment := range body {
		if segment == next {
			return CauseSelf, true
		}
	}
	return "", false
}

// loseLife applies a fatal collision. With lives left the snake goes back to
// its starting configuration; the last life ends the game and leaves the
// board as it was at the crash.
func (e *GameEngine) loseLife(cause CollisionCause, at Position) {
	e.state.Lives--
	e.state.Deaths++
	e.state.LastCause = cause
	crash := at
	e.state.CrashPoint = &crash

	if e.state.Lives <= 0 {
		e.state.Lives = 0
		e.state.RunState = GameOver
		e.state.Message = fmt.Sprintf(e.config.Messages.GameOver, e.state.Score)
		e.notify(LifeLost{Lives: 0, Cause: cause, At: at, Tick: e.state.TickCount})
		e.notify(GameEnded{Score: e.state.Score, Tick: e.state.TickCount})
		return
	}

	e.state.Snake = InitialSnake(e.config)
	e.state.Direction = e.config.InitialDirection
	e.state.PendingDirection = e.config.InitialDirection
	if e.state.Food == nil || e.onSnake(*e.state.Food) {
		e.placeFood()
	}
	e.state.Message = fmt.Sprintf(e.config.Messages.LifeLost, e.state.Lives)
	e.notify(LifeLost{Lives: e.state.Lives, Cause: cause, At: at, Tick: e.state.TickCount})
}

// placeFood puts food on a uniformly chosen free cell, or clears it when the
// snake fills the board.
func (e *GameEngine) placeFood() {
	free := e.freeCells()
	if len(free) == 0 {
		e.state.Food = nil
		return
	}
	food := free[e.rng.Intn(len(free))]
	e.state.Food = &food
}

// freeCells lists playable cells not covered by the snake in row-major order
func (e *GameEngine) freeCells() []Position {
	occupied := make(map[Position]bool, len(e.state.Snake))
	for _, p := range e.state.Snake {
		occupied[p] = true
	}

	minX, minY, maxX, maxY := playableBounds(e.config)
	free := make([]Position, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Position{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	return free
}

func (e *GameEngine) onSnake(p Position) bool {
	for _, segment := range e.state.Snake {
		if segment == p {
			return true
		}
	}
	return false
}

// playable reports whether p is inside the board and not a wall
func (e *GameEngine) playable(p Position) bool {
	minX, minY, maxX, maxY := playableBounds(e.config)
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
