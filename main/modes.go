package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gogrid/heat"
	"github.com/phil-mansfield/gogrid/io"
	"github.com/phil-mansfield/gogrid/nbody"
	"github.com/phil-mansfield/gogrid/wire"
)

func newHeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heat <config>",
		Short: "Relax the temperature of a square plate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := io.ReadHeatConfig(args[0])
			if err != nil {
				return err
			}
			return runMode(cmd, &con.SharedConfig, func(
				ctx context.Context, log *slog.Logger,
			) error {
				return heatMain(ctx, cmd, con, log)
			})
		},
	}
}

func heatMain(
	ctx context.Context, cmd *cobra.Command,
	con *io.HeatConfig, log *slog.Logger,
) error {
	out, err := heat.Run(ctx, con.Workers, con.Params(), log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s after %d cycles\n",
		out.Result.State, out.Result.Cycle)

	if con.ValidReportFile() {
		err := io.WriteReport(con.ReportFile, &io.RunReport{
			Mode: "heat", Workers: con.Workers,
			State: out.Result.State.String(), Cycles: out.Result.Cycle,
			Elapsed: out.Elapsed,
			Tiles:   io.TileReports(out.Tiles),
			Summary: io.Summarize(out.Field),
		})
		if err != nil {
			return err
		}
	}
	if con.ValidPlotFile() {
		col := con.N / 2
		io.PlotProfile(con.PlotFile, fmt.Sprintf("Column %d", col),
			"Temperature", heat.Column(out.Field, con.N, col))
	}
	return nil
}

func newNBodyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nbody <config>",
		Short: "Integrate a gravitating system of bodies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := io.ReadNBodyConfig(args[0])
			if err != nil {
				return err
			}
			return runMode(cmd, &con.SharedConfig, func(
				ctx context.Context, log *slog.Logger,
			) error {
				return nbodyMain(ctx, cmd, con, log)
			})
		},
	}
}

func nbodyMain(
	ctx context.Context, cmd *cobra.Command,
	con *io.NBodyConfig, log *slog.Logger,
) error {
	initer, err := con.BodyIniter()
	if err != nil {
		return err
	}
	out, err := nbody.Run(
		ctx, con.Workers, con.Bodies, con.Iters, con.H,
		con.Params(), initer, log,
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "integrated %d bodies for %d steps\n",
		len(out.Bodies), con.Iters)

	if con.ValidReportFile() {
		speeds := make([]float64, len(out.Bodies))
		for i, b := range out.Bodies {
			speeds[i] = math.Hypot(b.Vel[0], b.Vel[1])
		}
		err := io.WriteReport(con.ReportFile, &io.RunReport{
			Mode: "nbody", Workers: con.Workers,
			State: "integrated", Cycles: con.Iters,
			Elapsed: out.Elapsed,
			Summary: io.Summarize(speeds),
		})
		if err != nil {
			return err
		}
	}
	if con.ValidPlotFile() {
		io.PlotBodies(con.PlotFile, out.Bodies)
	}
	return nil
}

func newWireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wire <config>",
		Short: "Relax the temperature along a one-dimensional wire",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := io.ReadWireConfig(args[0])
			if err != nil {
				return err
			}
			return runMode(cmd, &con.SharedConfig, func(
				ctx context.Context, log *slog.Logger,
			) error {
				return wireMain(ctx, cmd, con, log)
			})
		},
	}
}

func wireMain(
	ctx context.Context, cmd *cobra.Command,
	con *io.WireConfig, log *slog.Logger,
) error {
	out, err := wire.Run(
		ctx, con.Workers, con.Params(),
		con.MaxCycles, con.Epsilon, con.SamplingInterval, log,
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s after %d cycles\n",
		out.Result.State, out.Result.Cycle)

	if con.ValidReportFile() {
		err := io.WriteReport(con.ReportFile, &io.RunReport{
			Mode: "wire", Workers: con.Workers,
			State: out.Result.State.String(), Cycles: out.Result.Cycle,
			Elapsed: out.Elapsed,
			Kinds:   out.Kinds,
			Summary: io.Summarize(out.Profile),
		})
		if err != nil {
			return err
		}
	}
	if con.ValidPlotFile() {
		io.PlotProfile(con.PlotFile, "Wire", "Temperature", out.Profile)
	}
	return nil
}
