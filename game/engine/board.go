package engine

import "strings"

// Board is a read-only snapshot of the grid, indexed [y][x]
type Board struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Cells  [][]CellKind `json:"cells"`
}

// BoardSnapshot renders the current state into a fresh Board. Calling it
// twice without an intervening Tick or KeyPress returns equal boards.
func (e *GameEngine) BoardSnapshot() Board {
	return RenderBoard(e.state, e.config.Walls)
}

// RenderBoard builds a Board from a state. Walls adds the border ring.
func RenderBoard(state *GameState, walls bool) Board {
	cells := make([][]CellKind, state.Height)
	for y := range cells {
		cells[y] = make([]CellKind, state.Width)
		for x := range cells[y] {
			cells[y][x] = Empty
			if walls && (x == 0 || y == 0 || x == state.Width-1 || y == state.Height-1) {
				cells[y][x] = Wall
			}
		}
	}

	if state.Food != nil {
		cells[state.Food.Y][state.Food.X] = Food
	}
	for i, p := range state.Snake {
		if p.Y < 0 || p.Y >= state.Height || p.X < 0 || p.X >= state.Width {
			continue
		}
		if i == 0 {
			cells[p.Y][p.X] = Head
		} else {
			cells[p.Y][p.X] = Body
		}
	}

	return Board{Width: state.Width, Height: state.Height, Cells: cells}
}

// At returns the kind of cell x,y; out-of-range cells read as Wall
func (b Board) At(x, y int) CellKind {
	if y < 0 || y >= len(b.Cells) || x < 0 || x >= len(b.Cells[y]) {
		return Wall
	}
	return b.Cells[y][x]
}

// Count returns how many cells hold the given kind
func (b Board) Count(kind CellKind) int {
	count := 0
	for _, row := range b.Cells {
		for _, cell := range row {
			if cell == kind {
				count++
			}
		}
	}
	return count
}

// Equal reports whether both boards hold the same cells
func (b Board) Equal(other Board) bool {
	if b.Width != other.Width || b.Height != other.Height {
		return false
	}
	for y := range b.Cells {
		for x := range b.Cells[y] {
			if b.Cells[y][x] != other.Cells[y][x] {
				return false
			}
		}
	}
	return true
}

// Symbol returns the single character used by text rendering
func (k CellKind) Symbol() byte {
	switch k {
	case Head:
		return '@'
	case Body:
		return 'o'
	case Food:
		return '*'
	case Wall:
		return '#'
	}
	return '.'
}

// Rows renders the board as one string per row
func (b Board) Rows() []string {
	rows := make([]string, len(b.Cells))
	for y, row := range b.Cells {
		line := make([]byte, len(row))
		for x, cell := range row {
			line[x] = cell.Symbol()
		}
		rows[y] = string(line)
	}
	return rows
}

func (b Board) String() string {
	return strings.Join(b.Rows(), "\n")
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// PlayableCells returns how many cells the snake and food may occupy
func PlayableCells(config *GameConfig) int {
	minX, minY, maxX, maxY := playableBounds(config)
	return (maxX - minX + 1) * (maxY - minY + 1)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
