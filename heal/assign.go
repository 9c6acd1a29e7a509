package heal

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// forbiddenCost marks a (left, right) pairing that failed the geometric or
// photometric gates. It is finite so the potential updates of the matching
// stay well defined; assignments landing on it are dropped afterwards.
const forbiddenCost = 1e12

// assignMinCost solves the rectangular minimum-cost assignment problem by
// shortest augmenting paths with row/column potentials. It returns, for each
// row of the cost matrix, the assigned column. Rows never share a column.
// The matrix is transposed internally when it has more rows than columns.
func assignMinCost(cost *mat.Dense) []int {
	n, m := cost.Dims()
	if n == 0 || m == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = -1
		}
		return out
	}
	if n > m {
		var t mat.Dense
		t.CloneFrom(cost.T())
		byCol := assignMinCost(&t)
		out := make([]int, n)
		for i := range out {
			out[i] = -1
		}
		for col, row := range byCol {
			if row >= 0 {
				out[row] = col
			}
		}
		return out
	}

	// Potentials and matching, 1-indexed with column 0 as the sentinel.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	match := make([]int, m+1) // column -> assigned row, 0 = free
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		match[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := match[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if match[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for j := 1; j <= m; j++ {
		if match[j] != 0 {
			out[match[j]-1] = j - 1
		}
	}
	return out
}
