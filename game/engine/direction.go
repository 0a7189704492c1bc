package engine

import "strings"

// Direction is one of the four grid headings
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the headings in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four headings
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the grid offset of one step. y grows downward.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

func (d Direction) String() string {
	return string(d)
}

// keyCodes maps raw host key codes onto headings. Browser KeyboardEvent.code
// values, WASD and vi keys are accepted.
var keyCodes = map[string]Direction{
	"up":         Up,
	"down":       Down,
	"left":       Left,
	"right":      Right,
	"arrowup":    Up,
	"arrowdown":  Down,
	"arrowleft":  Left,
	"arrowright": Right,
	"keyw":       Up,
	"keys":       Down,
	"keya":       Left,
	"keyd":       Right,
	"w":          Up,
	"s":          Down,
	"a":          Left,
	"d":          Right,
	"k":          Up,
	"j":          Down,
	"h":          Left,
	"l":          Right,
}

// ParseDirection maps a key code or direction name to a Direction.
// The second result is false for codes that are not movement keys.
func ParseDirection(code string) (Direction, bool) {
	d, ok := keyCodes[strings.ToLower(strings.TrimSpace(code))]
	return d, ok
}
