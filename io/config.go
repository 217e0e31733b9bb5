package io

import (
	"fmt"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gogrid/heat"
	"github.com/phil-mansfield/gogrid/nbody"
	"github.com/phil-mansfield/gogrid/wire"
)

const (
	ExampleHeatFile = `[Heat]

#######################
# Required Parameters #
#######################

# Number of workers. Must be a perfect square: the plate is split into a
# Workers = q*q grid of tiles.
Workers = 4

# Width of the plate in cells.
N = 150

# Maximum number of relaxation cycles. The run stops early once every cell
# on every worker moves by no more than Epsilon during a sampling cycle.
MaxCycles = 100000
Epsilon = 0.001

#######################
# Optional Parameters #
#######################

# Relaxation factor. Must be in the range (0, 1]. Default is 1, which is plain
# Jacobi averaging.
# Omega = 1

# Temperature of the top, left and right edges. Default is 100.
# Hot = 100

# Number of cycles between convergence checks. Default is 10.
# SamplingInterval = 10

# Number of cycles between progress messages (printed at the debug log level).
# UpdateFreq = 1000

# ReportFile is a YAML summary of the run. PlotFile is a plot of the middle
# column of the plate; it needs python and matplotlib.
# ReportFile = heat.yaml
# PlotFile = heat.png

# Output files which are useful for profiling and debugging. Generally, there
# isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out`

	ExampleNBodyFile = `[NBody]

#######################
# Required Parameters #
#######################

# Number of workers. One worker runs the sequential system, more run the ring
# system, where bodies are circulated around a ring of workers.
Workers = 4

# Number of bodies held by each worker. Must be even if Workers > 1.
Bodies = 50

# Number of steps and the length of each step.
Iters = 1000
H = 0.01

# Initer can be one of:
# [ RandomIniter | PresetIniter ]
Initer = RandomIniter

#######################
# Optional Parameters #
#######################

# Bodies closer to each other than MinR don't attract each other. Default is 0.
# MinR = 0.1

# Gravitational constant. Default is the SI value.
# G = 6.67259e-11

# Number of steps between progress messages.
# UpdateFreq = 100

# RandomIniter scatters bodies between two corners with velocities of up to
# VelocityRangeX and VelocityRangeY. All bodies get the same mass (default 100)
# and Seed makes runs repeatable.
# UpperLeftX = -100
# UpperLeftY = -100
# LowerRightX = 100
# LowerRightY = 100
# VelocityRangeX = 0.1
# VelocityRangeY = 0.1
# Mass = 100
# Seed = 0

# PresetIniter reads the bodies from a whitespace-separated text file with one
# body per line and the columns x, y, vx, vy and mass. It must list
# Workers * Bodies bodies.
# PresetFile = path/to/bodies.txt

# ReportFile = nbody.yaml
# PlotFile = nbody.png
# ProfileFile = prof.out
# LogFile = log.out`

	ExampleWireFile = `[Wire]

#######################
# Required Parameters #
#######################

# Number of workers. The wire is cut into one fragment per worker.
Workers = 4

# Number of elements in the wire. Each fragment needs at least two.
Length = 100

# A negative MaxCycles runs until convergence.
MaxCycles = 100000
Epsilon = 0.01

#######################
# Optional Parameters #
#######################

# Temperatures of the first and last element of the wire and the starting
# temperature of every other element. Defaults are 0, 100 and 20.
# Cold = 0
# Hot = 100
# Initial = 20

# SamplingInterval = 10

# ReportFile = wire.yaml
# PlotFile = wire.png
# ProfileFile = prof.out
# LogFile = log.out`
)

type SharedConfig struct {
	// Required
	Workers int
	// Optional
	LogFile, ProfileFile string
	ReportFile, PlotFile string
}

func (con *SharedConfig) ValidWorkers() bool {
	return con.Workers > 0
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}
func (con *SharedConfig) ValidReportFile() bool {
	return con.ReportFile != ""
}
func (con *SharedConfig) ValidPlotFile() bool {
	return con.PlotFile != ""
}

type HeatConfig struct {
	SharedConfig
	// Required
	N, MaxCycles int
	Epsilon      float64

	// Optional
	Omega, Hot                   float64
	SamplingInterval, UpdateFreq int
}

type HeatWrapper struct {
	Heat HeatConfig
}

func DefaultHeatWrapper() *HeatWrapper {
	con := HeatConfig{}
	con.Omega = heat.DefaultOmega
	con.Hot = heat.DefaultHot
	return &HeatWrapper{con}
}

func (con *HeatConfig) ValidN() bool {
	return con.N > 0
}
func (con *HeatConfig) ValidMaxCycles() bool {
	return con.MaxCycles >= 0
}
func (con *HeatConfig) ValidEpsilon() bool {
	return con.Epsilon >= 0
}
func (con *HeatConfig) ValidOmega() bool {
	return con.Omega > 0 && con.Omega <= 1
}
func (con *HeatConfig) ValidSamplingInterval() bool {
	return con.SamplingInterval >= 0
}
func (con *HeatConfig) ValidUpdateFreq() bool {
	return con.UpdateFreq >= 0
}

// Check returns an error describing the first invalid parameter.
func (con *HeatConfig) Check() error {
	switch {
	case !con.ValidWorkers():
		return fmt.Errorf("Need to specify a positive Workers count.")
	case !con.ValidN():
		return fmt.Errorf("Need to specify a positive plate width, N.")
	case !con.ValidMaxCycles():
		return fmt.Errorf(
			"MaxCycles must be non-negative, but is %d.", con.MaxCycles,
		)
	case !con.ValidEpsilon():
		return fmt.Errorf(
			"Epsilon must be non-negative, but is %g.", con.Epsilon,
		)
	case !con.ValidOmega():
		return fmt.Errorf(
			"Omega must be in range (0, 1], but is %g.", con.Omega,
		)
	case !con.ValidSamplingInterval():
		return fmt.Errorf(
			"SamplingInterval must be non-negative, but is %d.",
			con.SamplingInterval,
		)
	case !con.ValidUpdateFreq():
		return fmt.Errorf(
			"UpdateFreq must be non-negative, but is %d.", con.UpdateFreq,
		)
	}
	return nil
}

// Params converts the config into the parameters of a heat run.
func (con *HeatConfig) Params() heat.Params {
	return heat.Params{
		N: con.N, MaxCycles: con.MaxCycles, Epsilon: con.Epsilon,
		Omega: con.Omega, Hot: con.Hot,
		SamplingInterval: con.SamplingInterval, UpdateFreq: con.UpdateFreq,
	}
}

type NBodyConfig struct {
	SharedConfig
	// Required
	Bodies, Iters int
	H             float64
	Initer        string

	// Optional
	MinR, G    float64
	UpdateFreq int

	UpperLeftX, UpperLeftY, LowerRightX, LowerRightY float64
	VelocityRangeX, VelocityRangeY                   float64
	Mass                                             float64
	Seed                                             int

	PresetFile string
}

type NBodyWrapper struct {
	NBody NBodyConfig
}

func DefaultNBodyWrapper() *NBodyWrapper {
	con := NBodyConfig{}
	con.G = nbody.G
	con.Mass = nbody.DefaultMass
	con.Initer = "RandomIniter"
	return &NBodyWrapper{con}
}

func (con *NBodyConfig) ValidBodies() bool {
	return con.Bodies > 0 && (con.Workers == 1 || con.Bodies%2 == 0)
}
func (con *NBodyConfig) ValidIters() bool {
	return con.Iters >= 0
}
func (con *NBodyConfig) ValidH() bool {
	return con.H > 0
}
func (con *NBodyConfig) ValidIniter() bool {
	switch strings.ToLower(con.Initer) {
	case "randominiter":
		return true
	case "presetiniter":
		return con.PresetFile != ""
	}
	return false
}
func (con *NBodyConfig) ValidMinR() bool {
	return con.MinR >= 0
}
func (con *NBodyConfig) ValidMass() bool {
	return con.Mass > 0
}
func (con *NBodyConfig) ValidPresetFile() bool {
	return con.PresetFile != ""
}

// Check returns an error describing the first invalid parameter.
func (con *NBodyConfig) Check() error {
	switch {
	case !con.ValidWorkers():
		return fmt.Errorf("Need to specify a positive Workers count.")
	case !con.ValidBodies():
		return fmt.Errorf(
			"Bodies must be positive, and even when Workers > 1, but is %d.",
			con.Bodies,
		)
	case !con.ValidIters():
		return fmt.Errorf("Iters must be non-negative, but is %d.", con.Iters)
	case !con.ValidH():
		return fmt.Errorf("Need to specify a positive step length, H.")
	case !con.ValidIniter():
		return fmt.Errorf(
			"Initer must be one of [RandomIniter | PresetIniter], and "+
				"PresetIniter needs a PresetFile. '%s' is not recognized.",
			con.Initer,
		)
	case !con.ValidMinR():
		return fmt.Errorf("MinR must be non-negative, but is %g.", con.MinR)
	case !con.ValidMass():
		return fmt.Errorf("Mass must be positive, but is %g.", con.Mass)
	}
	return nil
}

// Params converts the config into the physical parameters of a system.
func (con *NBodyConfig) Params() nbody.Params {
	return nbody.Params{MinR: con.MinR, G: con.G, UpdateFreq: con.UpdateFreq}
}

// BodyIniter returns the body initializer named by the config, reading the
// preset file if needed.
func (con *NBodyConfig) BodyIniter() (nbody.Initer, error) {
	if strings.ToLower(con.Initer) == "presetiniter" {
		bodies, err := ReadBodies(con.PresetFile)
		if err != nil {
			return nil, err
		}
		return &nbody.PresetIniter{Bodies: bodies}, nil
	}

	return &nbody.RandomIniter{
		Corner1:       [2]float64{con.UpperLeftX, con.UpperLeftY},
		Corner2:       [2]float64{con.LowerRightX, con.LowerRightY},
		VelocityRange: [2]float64{con.VelocityRangeX, con.VelocityRangeY},
		Mass:          con.Mass,
		Seed:          int64(con.Seed),
	}, nil
}

type WireConfig struct {
	SharedConfig
	// Required
	Length, MaxCycles int
	Epsilon           float64

	// Optional
	Cold, Hot, Initial float64
	SamplingInterval   int
}

type WireWrapper struct {
	Wire WireConfig
}

func DefaultWireWrapper() *WireWrapper {
	p := wire.DefaultParams(0)
	con := WireConfig{}
	con.Cold, con.Hot, con.Initial = p.Cold, p.Hot, p.Initial
	return &WireWrapper{con}
}

func (con *WireConfig) ValidLength() bool {
	return con.Length >= 2*con.Workers
}
func (con *WireConfig) ValidEpsilon() bool {
	return con.Epsilon >= 0
}
func (con *WireConfig) ValidSamplingInterval() bool {
	return con.SamplingInterval >= 0
}

// Check returns an error describing the first invalid parameter.
func (con *WireConfig) Check() error {
	switch {
	case !con.ValidWorkers():
		return fmt.Errorf("Need to specify a positive Workers count.")
	case !con.ValidLength():
		return fmt.Errorf(
			"Length must be at least two elements per worker (%d), but is %d.",
			2*con.Workers, con.Length,
		)
	case !con.ValidEpsilon():
		return fmt.Errorf(
			"Epsilon must be non-negative, but is %g.", con.Epsilon,
		)
	case !con.ValidSamplingInterval():
		return fmt.Errorf(
			"SamplingInterval must be non-negative, but is %d.",
			con.SamplingInterval,
		)
	}
	return nil
}

// Params converts the config into a wire description.
func (con *WireConfig) Params() wire.Params {
	return wire.Params{
		Length: con.Length, Cold: con.Cold, Hot: con.Hot, Initial: con.Initial,
	}
}

// ReadHeatConfig reads and checks a heat config file.
func ReadHeatConfig(fname string) (*HeatConfig, error) {
	wrap := DefaultHeatWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Heat.Check(); err != nil {
		return nil, err
	}
	return &wrap.Heat, nil
}

// ReadNBodyConfig reads and checks an N-body config file.
func ReadNBodyConfig(fname string) (*NBodyConfig, error) {
	wrap := DefaultNBodyWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.NBody.Check(); err != nil {
		return nil, err
	}
	return &wrap.NBody, nil
}

// ReadWireConfig reads and checks a wire config file.
func ReadWireConfig(fname string) (*WireConfig, error) {
	wrap := DefaultWireWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Wire.Check(); err != nil {
		return nil, err
	}
	return &wrap.Wire, nil
}

// ExampleConfig returns the example config file of the given mode.
func ExampleConfig(mode string) (string, error) {
	switch strings.ToLower(mode) {
	case "heat":
		return ExampleHeatFile, nil
	case "nbody":
		return ExampleNBodyFile, nil
	case "wire":
		return ExampleWireFile, nil
	}
	return "", fmt.Errorf(
		"Example config mode must be one of [Heat | NBody | Wire]. '%s' "+
			"is not recognized.", mode,
	)
}
