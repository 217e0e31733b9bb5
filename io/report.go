package io

import (
	"os"
	"time"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/gogrid/geom"
)

// RunReport summarizes a finished run.
type RunReport struct {
	Mode    string        `yaml:"mode"`
	Workers int           `yaml:"workers"`
	State   string        `yaml:"state"`
	Cycles  int           `yaml:"cycles"`
	Elapsed time.Duration `yaml:"elapsed"`

	Tiles   []TileReport `yaml:"tiles,omitempty"`
	Kinds   []string     `yaml:"fragments,omitempty"`
	Summary Summary      `yaml:"summary"`
}

// TileReport is the geometry of one rank's tile, as inclusive absolute
// ranges.
type TileReport struct {
	Rank int    `yaml:"rank"`
	Rows [2]int `yaml:"rows,flow"`
	Cols [2]int `yaml:"cols,flow"`
}

// Summary holds summary statistics of a final field.
type Summary struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Mean float64 `yaml:"mean"`
}

// Summarize computes the Summary of xs.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	return Summary{
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
		Mean: floats.Sum(xs) / float64(len(xs)),
	}
}

// TileReports converts tile bounds, indexed by rank, into TileReports.
func TileReports(tiles []geom.Bounds) []TileReport {
	out := make([]TileReport, len(tiles))
	for rank, b := range tiles {
		out[rank] = TileReport{
			Rank: rank, Rows: [2]int{b.Row0, b.Row1}, Cols: [2]int{b.Col0, b.Col1},
		}
	}
	return out
}

// WriteReport writes r to fname as YAML.
func WriteReport(fname string, r *RunReport) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(fname, b, 0644)
}

// ReadReport reads a report written by WriteReport.
func ReadReport(fname string) (*RunReport, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	r := &RunReport{}
	if err := yaml.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
