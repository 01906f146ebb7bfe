// Package csvnodes reads node tables exported from spreadsheets.
//
// The first record is "capacity,<n>", the second the header
// "id,x,y,demand,depot"; every following record is one node. The depot column
// accepts anything strconv.ParseBool does, empty meaning false.
package csvnodes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cvrpga/internal/model"
)

type Loader struct{}

func (Loader) Name() string { return "csv" }

var header = []string{"id", "x", "y", "demand", "depot"}

func (Loader) Load(r io.Reader) (model.Description, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rec, err := cr.Read()
	if err != nil {
		return model.Description{}, fmt.Errorf("csv capacity: %w", err)
	}
	if len(rec) != 2 || !strings.EqualFold(rec[0], "capacity") {
		return model.Description{}, errors.New("csv: first record must be capacity,<n>")
	}
	capacity, err := strconv.Atoi(rec[1])
	if err != nil {
		return model.Description{}, fmt.Errorf("csv capacity %q: %w", rec[1], err)
	}
	rec, err = cr.Read()
	if err != nil {
		return model.Description{}, fmt.Errorf("csv header: %w", err)
	}
	if len(rec) != len(header) {
		return model.Description{}, fmt.Errorf("csv header: want %s", strings.Join(header, ","))
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return model.Description{}, fmt.Errorf("csv header column %d: want %s, got %q", i+1, h, rec[i])
		}
	}

	desc := model.Description{
		Capacity:       capacity,
		EdgeWeightType: model.EdgeWeightEuclidean2D,
		Nodes:          map[string]model.Node{},
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Description{}, err
		}
		line, _ := cr.FieldPos(0)
		n, id, err := parseNode(rec)
		if err != nil {
			return model.Description{}, fmt.Errorf("csv line %d: %w", line, err)
		}
		if _, dup := desc.Nodes[id]; dup {
			return model.Description{}, fmt.Errorf("csv line %d: duplicate node %s", line, id)
		}
		desc.Nodes[id] = n
	}
	return desc, nil
}

func parseNode(rec []string) (model.Node, string, error) {
	if len(rec) != len(header) {
		return model.Node{}, "", fmt.Errorf("want %d fields, got %d", len(header), len(rec))
	}
	id := strings.TrimSpace(rec[0])
	x, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return model.Node{}, "", fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil {
		return model.Node{}, "", fmt.Errorf("y: %w", err)
	}
	demand, err := strconv.Atoi(strings.TrimSpace(rec[3]))
	if err != nil {
		return model.Node{}, "", fmt.Errorf("demand: %w", err)
	}
	depot := false
	if v := strings.TrimSpace(rec[4]); v != "" {
		if depot, err = strconv.ParseBool(v); err != nil {
			return model.Node{}, "", fmt.Errorf("depot: %w", err)
		}
	}
	return model.Node{X: x, Y: y, Demand: demand, IsDepot: depot}, id, nil
}
