// Package report renders solver results as charts.
package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"cvrpga/internal/model"
)

var (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// ConvergencePlot draws the best cost as a step line over the generations of a run.
// The file format follows the extension of path (png, svg, pdf, ...).
func ConvergencePlot(history []model.Improvement, generations int, path string) error {
	if len(history) == 0 {
		return errors.New("convergence plot: empty history")
	}
	pts := make(plotter.XYs, 0, len(history)+1)
	for _, h := range history {
		pts = append(pts, plotter.XY{X: float64(h.Generation), Y: float64(h.Cost)})
	}
	last := history[len(history)-1]
	if end := generations - 1; end > last.Generation {
		pts = append(pts, plotter.XY{X: float64(end), Y: float64(last.Cost)})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Best cost (final %d)", last.Cost)
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Cost"
	p.Add(plotter.NewGrid())

	line, marks, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("convergence plot: %w", err)
	}
	line.StepStyle = plotter.PostStep
	line.Color = plotutil.Color(0)
	marks.Shape = draw.CircleGlyph{}
	marks.Color = plotutil.Color(0)
	p.Add(line, marks)
	p.Legend.Add("best", line)
	p.Legend.Top = true

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("convergence plot: %w", err)
	}
	return nil
}

// RoutesPlot draws every route of plan as a closed polyline through the node coordinates.
func RoutesPlot(desc model.Description, plan [][]string, path string) error {
	p := plot.New()
	title := "Routes"
	if desc.Name != "" {
		title = desc.Name
	}
	p.Title.Text = fmt.Sprintf("%s (%d vehicles)", title, len(plan))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for i, route := range plan {
		pts := make(plotter.XYs, 0, len(route))
		for _, id := range route {
			n, ok := desc.Nodes[id]
			if !ok {
				return fmt.Errorf("routes plot: route %d: unknown node %q", i, id)
			}
			pts = append(pts, plotter.XY{X: n.X, Y: n.Y})
		}
		line, marks, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("routes plot: %w", err)
		}
		c := plotutil.Color(i)
		line.Color = c
		line.Width = vg.Points(1.5)
		marks.Color = c
		marks.Shape = draw.CircleGlyph{}
		p.Add(line, marks)
	}

	var depot plotter.XYs
	for _, n := range desc.Nodes {
		if n.IsDepot {
			depot = append(depot, plotter.XY{X: n.X, Y: n.Y})
		}
	}
	if len(depot) > 0 {
		sc, err := plotter.NewScatter(depot)
		if err != nil {
			return fmt.Errorf("routes plot: %w", err)
		}
		sc.Shape = draw.BoxGlyph{}
		sc.Radius = vg.Points(5)
		sc.Color = color.Black
		p.Add(sc)
		p.Legend.Add("depot", sc)
	}

	if err := p.Save(chartWidth, chartWidth, path); err != nil {
		return fmt.Errorf("routes plot: %w", err)
	}
	return nil
}
