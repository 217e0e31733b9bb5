package io

import (
	"fmt"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/gogrid/nbody"
)

// PlotProfile plots ys against their index and saves the figure to fname.
// Plots are drawn by a generated python script, so python and matplotlib
// need to be installed.
func PlotProfile(fname, title, ylabel string, ys []float64) {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	plt.Figure()
	plt.Plot(xs, ys, "k", plt.LW(2))
	plt.Title(title)
	plt.XLabel("Cell", plt.FontSize(16))
	plt.YLabel(ylabel, plt.FontSize(16))
	plt.Grid(plt.Axis("y"))
	plt.SaveFig(fname)
	plt.Execute()
}

// PlotBodies draws the positions of bodies and saves the figure to fname.
func PlotBodies(fname string, bodies []nbody.Body) {
	xs, ys := make([]float64, len(bodies)), make([]float64, len(bodies))
	for i := range bodies {
		xs[i], ys[i] = bodies[i].Pos[0], bodies[i].Pos[1]
	}

	plt.Figure(plt.FigSize(8, 8))
	plt.Plot(xs, ys, "ok")
	plt.Title(fmt.Sprintf("%d bodies", len(bodies)))
	plt.XLabel(`$X$`, plt.FontSize(16))
	plt.YLabel(`$Y$`, plt.FontSize(16))
	plt.SaveFig(fname)
	plt.Execute()
}
