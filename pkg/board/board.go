package board

import "fmt"

// Piece is one of the two per-player markers placed on the board.
type Piece uint8

const (
	PieceNone Piece = iota
	PieceX
	PieceO
)

func (p Piece) String() string {
	switch p {
	case PieceX:
		return "X"
	case PieceO:
		return "O"
	default:
		return "-"
	}
}

// Other returns the opposing piece.
func (p Piece) Other() Piece {
	if p == PieceX {
		return PieceO
	}
	return PieceX
}

// Winner is the terminal result recorded on a board once play is decided.
type Winner uint8

const (
	WinnerX Winner = iota + 1
	WinnerO
	WinnerTie
)

// ErrInvalidPosition indicates coordinates outside the grid.
type ErrInvalidPosition struct {
	Row int
	Col int
}

func (e *ErrInvalidPosition) Error() string {
	return fmt.Sprintf("position out of bounds: row %d col %d", e.Row, e.Col)
}

func IsInvalidPosition(err error) bool {
	_, ok := err.(*ErrInvalidPosition)
	return ok
}

// ErrCellOccupied indicates the target cell already holds a piece.
// The occupying piece is carried for diagnostics.
type ErrCellOccupied struct {
	Row   int
	Col   int
	Piece Piece
}

func (e *ErrCellOccupied) Error() string {
	return fmt.Sprintf("cell row %d col %d already holds %s", e.Row, e.Col, e.Piece)
}

func IsCellOccupied(err error) bool {
	_, ok := err.(*ErrCellOccupied)
	return ok
}

// Board is a square grid of cells. Once a cell holds a piece it is never
// overwritten; all writes go through Place which validates first.
type Board struct {
	Size         int       `json:"size"`
	WinLength    int       `json:"win_length"`
	Cells        [][]Piece `json:"cells"`
	CurrentPiece Piece     `json:"current_piece"`
	Winner       *Winner   `json:"winner,omitempty"`
}

// New creates an empty board. The first move always belongs to X.
func New(size, winLength int) *Board {
	cells := make([][]Piece, size)
	for i := range cells {
		cells[i] = make([]Piece, size)
	}
	return &Board{
		Size:         size,
		WinLength:    winLength,
		Cells:        cells,
		CurrentPiece: PieceX,
	}
}

// CheckMove reports whether a piece may be placed at (row, col).
func (b *Board) CheckMove(row, col int) error {
	if row < 0 || row >= b.Size || col < 0 || col >= b.Size {
		return &ErrInvalidPosition{Row: row, Col: col}
	}
	if occupying := b.Cells[row][col]; occupying != PieceNone {
		return &ErrCellOccupied{Row: row, Col: col, Piece: occupying}
	}
	return nil
}

// Place puts the current piece at (row, col) and advances the turn.
func (b *Board) Place(row, col int) error {
	if err := b.CheckMove(row, col); err != nil {
		return err
	}
	b.Cells[row][col] = b.CurrentPiece
	b.CurrentPiece = b.CurrentPiece.Other()
	return nil
}

// UpdateWinner runs win detection from the just-played cell. It scans the
// four axes through (row, col) and counts the maximal contiguous run of the
// placed piece. A run of at least WinLength records that piece as winner;
// a full board with no winner records a tie.
func (b *Board) UpdateWinner(row, col int) {
	mark := b.Cells[row][col]
	if mark == PieceNone {
		return
	}

	dirs := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1

		fr, fc := row+d[0], col+d[1]
		for fr >= 0 && fr < b.Size && fc >= 0 && fc < b.Size && b.Cells[fr][fc] == mark {
			count++
			fr += d[0]
			fc += d[1]
		}

		br, bc := row-d[0], col-d[1]
		for br >= 0 && br < b.Size && bc >= 0 && bc < b.Size && b.Cells[br][bc] == mark {
			count++
			br -= d[0]
			bc -= d[1]
		}

		if count >= b.WinLength {
			winner := WinnerX
			if mark == PieceO {
				winner = WinnerO
			}
			b.Winner = &winner
			return
		}
	}

	if b.isFull() {
		tie := WinnerTie
		b.Winner = &tie
	}
}

func (b *Board) isFull() bool {
	for _, row := range b.Cells {
		for _, cell := range row {
			if cell == PieceNone {
				return false
			}
		}
	}
	return true
}

// Snapshot returns a deep copy of the cells for read-only display.
func (b *Board) Snapshot() [][]Piece {
	cells := make([][]Piece, len(b.Cells))
	for i, row := range b.Cells {
		cells[i] = make([]Piece, len(row))
		copy(cells[i], row)
	}
	return cells
}
