package tsplib

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cvrpga/internal/model"
)

const small = `NAME : tiny-n4
COMMENT : (hand made, No of trucks: 2)
TYPE : CVRP
DIMENSION : 4
EDGE_WEIGHT_TYPE : EUC_2D
CAPACITY : 6
NODE_COORD_SECTION
 1 0 0
 2 1 0
 3 2 0
 4 3.5 -1
DEMAND_SECTION
1 0
2 3
3 3
4 3
DEPOT_SECTION
 1
 -1
EOF
`

func TestParse(t *testing.T) {
	desc, err := Parse(strings.NewReader(small))
	require.NoError(t, err)
	require.Equal(t, "tiny-n4", desc.Name)
	require.Equal(t, 6, desc.Capacity)
	require.Equal(t, model.EdgeWeightEuclidean2D, desc.EdgeWeightType)
	require.Len(t, desc.Nodes, 4)
	require.Equal(t, model.Node{X: 0, Y: 0, IsDepot: true}, desc.Nodes["1"])
	require.Equal(t, model.Node{X: 3.5, Y: -1, Demand: 3}, desc.Nodes["4"])
	require.NoError(t, desc.Validate())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		line    int
	}{
		{"bad coordinate", [2]string{" 3 2 0", " 3 two 0"}, 10},
		{"demand for unknown node", [2]string{"4 3\n", "9 3\n"}, 16},
		{"unknown depot", [2]string{" 1\n -1", " 7\n -1"}, 18},
		{"bad capacity", [2]string{"CAPACITY : 6", "CAPACITY : six"}, 6},
		{"wrong type", [2]string{"TYPE : CVRP", "TYPE : TSP"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.Replace(small, tt.replace[0], tt.replace[1], 1)
			_, err := Parse(strings.NewReader(in))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			require.Equal(t, tt.line, pe.Line)
		})
	}

	_, err := Parse(strings.NewReader(strings.Replace(small, "DIMENSION : 4", "DIMENSION : 5", 1)))
	require.ErrorContains(t, err, "DIMENSION")

	_, err = Parse(strings.NewReader(strings.Replace(small, "4 3\n", "", 1)))
	require.ErrorContains(t, err, "no demand")
}
