// Package tsplib parses CVRP instances in the TSPLIB95 text format.
package tsplib

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cvrpga/internal/model"
)

type Loader struct{}

func (Loader) Name() string { return "tsplib" }

func (Loader) Load(r io.Reader) (model.Description, error) { return Parse(r) }

type section int

const (
	secHeader section = iota
	secCoords
	secDemand
	secDepot
	secDone
)

// ParseError carries the 1-based line number of the offending input.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("tsplib line %d: %s", e.Line, e.Msg) }

// Parse reads NAME, TYPE, DIMENSION, CAPACITY, EDGE_WEIGHT_TYPE and the coordinate,
// demand and depot sections. Node ids keep their textual form.
func Parse(r io.Reader) (model.Description, error) {
	desc := model.Description{Nodes: map[string]model.Node{}}
	hasDemand := map[string]bool{}
	dimension := -1
	sec := secHeader
	line := 0
	fail := func(format string, args ...any) error {
		return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || sec == secDone {
			continue
		}
		switch text {
		case "NODE_COORD_SECTION":
			sec = secCoords
			continue
		case "DEMAND_SECTION":
			sec = secDemand
			continue
		case "DEPOT_SECTION":
			sec = secDepot
			continue
		case "EOF":
			sec = secDone
			continue
		}

		if key, val, ok := strings.Cut(text, ":"); ok {
			key, val = strings.TrimSpace(key), strings.TrimSpace(val)
			switch key {
			case "NAME":
				desc.Name = val
			case "TYPE":
				if val != "CVRP" {
					return model.Description{}, fail("unsupported TYPE %q", val)
				}
			case "DIMENSION":
				n, err := strconv.Atoi(val)
				if err != nil || n < 1 {
					return model.Description{}, fail("bad DIMENSION %q", val)
				}
				dimension = n
			case "CAPACITY":
				n, err := strconv.Atoi(val)
				if err != nil {
					return model.Description{}, fail("bad CAPACITY %q", val)
				}
				desc.Capacity = n
			case "EDGE_WEIGHT_TYPE":
				desc.EdgeWeightType = val
			}
			sec = secHeader
			continue
		}

		fields := strings.Fields(text)
		switch sec {
		case secCoords:
			if len(fields) != 3 {
				return model.Description{}, fail("expected <id> <x> <y>, got %q", text)
			}
			x, errX := strconv.ParseFloat(fields[1], 64)
			y, errY := strconv.ParseFloat(fields[2], 64)
			if errX != nil || errY != nil {
				return model.Description{}, fail("bad coordinates %q", text)
			}
			if _, dup := desc.Nodes[fields[0]]; dup {
				return model.Description{}, fail("duplicate node %s", fields[0])
			}
			desc.Nodes[fields[0]] = model.Node{X: x, Y: y}
		case secDemand:
			if len(fields) != 2 {
				return model.Description{}, fail("expected <id> <demand>, got %q", text)
			}
			n, ok := desc.Nodes[fields[0]]
			if !ok {
				return model.Description{}, fail("demand for unknown node %s", fields[0])
			}
			d, err := strconv.Atoi(fields[1])
			if err != nil {
				return model.Description{}, fail("bad demand %q", fields[1])
			}
			n.Demand = d
			desc.Nodes[fields[0]] = n
			hasDemand[fields[0]] = true
		case secDepot:
			if fields[0] == "-1" {
				sec = secDone
				continue
			}
			n, ok := desc.Nodes[fields[0]]
			if !ok {
				return model.Description{}, fail("depot %s has no coordinates", fields[0])
			}
			n.IsDepot = true
			desc.Nodes[fields[0]] = n
		default:
			return model.Description{}, fail("unexpected %q outside a section", text)
		}
	}
	if err := sc.Err(); err != nil {
		return model.Description{}, err
	}

	if dimension >= 0 && dimension != len(desc.Nodes) {
		return model.Description{}, fmt.Errorf("tsplib: DIMENSION %d but %d nodes", dimension, len(desc.Nodes))
	}
	for id := range desc.Nodes {
		if !hasDemand[id] {
			return model.Description{}, fmt.Errorf("tsplib: node %s has no demand", id)
		}
	}
	return desc, nil
}
