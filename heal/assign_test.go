package heal

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAssignMinCostSquare(t *testing.T) {
	cost := mat.NewDense(2, 2, []float64{
		1, 2,
		2, 4,
	})
	got := assignMinCost(cost)
	// (0,1)+(1,0) totals 4, beating the diagonal's 5.
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("assignment = %v, want [1 0]", got)
	}
}

func TestAssignMinCostIdentity(t *testing.T) {
	cost := mat.NewDense(3, 3, []float64{
		1, 9, 9,
		9, 1, 9,
		9, 9, 1,
	})
	got := assignMinCost(cost)
	for i, j := range got {
		if j != i {
			t.Errorf("row %d assigned column %d, want %d", i, j, i)
		}
	}
}

func TestAssignMinCostWideMatrix(t *testing.T) {
	cost := mat.NewDense(2, 3, []float64{
		5, 1, 9,
		9, 5, 1,
	})
	got := assignMinCost(cost)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("assignment = %v, want [1 2]", got)
	}
}

func TestAssignMinCostTallMatrix(t *testing.T) {
	cost := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 10,
		10, 1,
	})
	got := assignMinCost(cost)
	if got[0] != 0 || got[1] != -1 || got[2] != 1 {
		t.Errorf("assignment = %v, want [0 -1 1]", got)
	}
}

func TestAssignMinCostNoSharedColumns(t *testing.T) {
	cost := mat.NewDense(4, 4, []float64{
		3, 1, 4, 1,
		5, 9, 2, 6,
		5, 3, 5, 8,
		9, 7, 9, 3,
	})
	got := assignMinCost(cost)
	seen := make(map[int]bool)
	for i, j := range got {
		if j < 0 {
			t.Fatalf("row %d unassigned in a square problem", i)
		}
		if seen[j] {
			t.Fatalf("column %d assigned twice", j)
		}
		seen[j] = true
	}
}

func TestAssignMinCostEmpty(t *testing.T) {
	got := assignMinCost(mat.NewDense(1, 1, []float64{0}))
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("assignment = %v, want [0]", got)
	}
}
