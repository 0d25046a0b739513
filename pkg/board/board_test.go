package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_CheckMove(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		col     int
		wantErr func(error) bool
	}{
		{
			name: "valid move",
			row:  2,
			col:  2,
		},
		{
			name:    "row out of bounds",
			row:     5,
			col:     0,
			wantErr: IsInvalidPosition,
		},
		{
			name:    "negative column",
			row:     0,
			col:     -1,
			wantErr: IsInvalidPosition,
		},
		{
			name:    "occupied cell",
			row:     0,
			col:     0,
			wantErr: IsCellOccupied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(5, 5)
			require.NoError(t, b.Place(0, 0))

			err := b.CheckMove(tt.row, tt.col)
			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.True(t, tt.wantErr(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBoard_CellImmutability(t *testing.T) {
	b := New(5, 5)
	require.NoError(t, b.Place(1, 1))
	assert.Equal(t, PieceX, b.Cells[1][1])

	err := b.Place(1, 1)
	require.Error(t, err)
	assert.True(t, IsCellOccupied(err))
	occupied := err.(*ErrCellOccupied)
	assert.Equal(t, PieceX, occupied.Piece)
	assert.Equal(t, PieceX, b.Cells[1][1])
}

func TestBoard_PlaceAlternatesPieces(t *testing.T) {
	b := New(5, 5)
	require.NoError(t, b.Place(0, 0))
	require.NoError(t, b.Place(0, 1))
	assert.Equal(t, PieceX, b.Cells[0][0])
	assert.Equal(t, PieceO, b.Cells[0][1])
	assert.Equal(t, PieceX, b.CurrentPiece)
}

func TestBoard_UpdateWinner(t *testing.T) {
	tests := []struct {
		name  string
		cells [][2]int
		last  [2]int
		want  Winner
	}{
		{
			name:  "horizontal",
			cells: [][2]int{{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4}},
			last:  [2]int{2, 4},
			want:  WinnerX,
		},
		{
			name:  "vertical",
			cells: [][2]int{{0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 3}},
			last:  [2]int{4, 3},
			want:  WinnerX,
		},
		{
			name:  "diagonal",
			cells: [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}},
			last:  [2]int{4, 4},
			want:  WinnerX,
		},
		{
			name:  "anti-diagonal",
			cells: [][2]int{{0, 4}, {1, 3}, {2, 2}, {3, 1}, {4, 0}},
			last:  [2]int{4, 0},
			want:  WinnerX,
		},
		{
			name:  "win completed from the middle of the run",
			cells: [][2]int{{2, 0}, {2, 1}, {2, 3}, {2, 4}, {2, 2}},
			last:  [2]int{2, 2},
			want:  WinnerX,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(5, 5)
			for _, c := range tt.cells {
				b.Cells[c[0]][c[1]] = PieceX
			}
			b.UpdateWinner(tt.last[0], tt.last[1])
			require.NotNil(t, b.Winner)
			assert.Equal(t, tt.want, *b.Winner)
		})
	}
}

func TestBoard_NoWinnerOnShortRun(t *testing.T) {
	b := New(5, 5)
	for col := 0; col < 4; col++ {
		b.Cells[0][col] = PieceO
	}
	b.UpdateWinner(0, 3)
	assert.Nil(t, b.Winner)
}

func TestBoard_TieOnFullBoard(t *testing.T) {
	// A full 2x2 board can never contain a run of 3.
	b := New(2, 3)
	require.NoError(t, b.Place(0, 0))
	require.NoError(t, b.Place(0, 1))
	require.NoError(t, b.Place(1, 0))
	require.NoError(t, b.Place(1, 1))
	b.UpdateWinner(1, 1)
	require.NotNil(t, b.Winner)
	assert.Equal(t, WinnerTie, *b.Winner)
}

func TestBoard_Snapshot(t *testing.T) {
	b := New(3, 3)
	require.NoError(t, b.Place(0, 0))

	snapshot := b.Snapshot()
	snapshot[0][0] = PieceO
	assert.Equal(t, PieceX, b.Cells[0][0])
}
