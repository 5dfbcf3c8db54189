// Package conflict builds the order conflict graph: two orders are adjacent
// when no single vehicle can deliver both on time.
package conflict

import (
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/models"
	"github.com/google/uuid"
)

// Pair is one conflict edge. A is always lower than B.
type Pair struct {
	A     int    `json:"a"`
	B     int    `json:"b"`
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

// Graph is the result of one build. Matrix is symmetric with a false diagonal,
// and Conflicts lists its upper triangle in row-major order.
type Graph struct {
	ID        uuid.UUID        `json:"id"`
	BuiltAt   time.Time        `json:"built_at"`
	Orders    []*models.Order  `json:"orders"`
	Matrix    [][]bool         `json:"matrix"`
	Conflicts []Pair           `json:"conflicts"`
	EdgeCount int              `json:"edge_count"`
	Warnings  []models.Warning `json:"warnings"`
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.Orders)
}

// Neighbors returns the indices of the orders conflicting with order i, ascending.
func (g *Graph) Neighbors(i int) []int {
	var out []int
	for j, conflict := range g.Matrix[i] {
		if conflict {
			out = append(out, j)
		}
	}

	return out
}

func newMatrix(n int) [][]bool {
	matrix := make([][]bool, n)
	for i := range matrix {
		matrix[i] = make([]bool, n)
	}

	return matrix
}
