package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/ShenRen/simbody"
	"github.com/ShenRen/simbody/mechfile"
)

var (
	dt       float64
	duration float64
	tol      float64
	plotBody int
	workers  int
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simbody",
		Short: "constrained multibody dynamics",
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate [mechfile]",
		Short: "integrate a mechanism and plot a body height",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&dt, "dt", 0.001, "timestep")
	simulateCmd.Flags().Float64Var(&duration, "time", 2.0, "duration")
	simulateCmd.Flags().Float64Var(&tol, "tol", 1e-8, "constraint projection tolerance")
	simulateCmd.Flags().IntVar(&plotBody, "body", 1, "body whose height is plotted")
	simulateCmd.Flags().IntVar(&workers, "workers", 0, "jacobian worker count")

	reactionsCmd := &cobra.Command{
		Use:   "reactions [mechfile]",
		Short: "print mobilizer reaction forces at the assembled state",
		Args:  cobra.ExactArgs(1),
		RunE:  runReactions,
	}
	reactionsCmd.Flags().Float64Var(&tol, "tol", 1e-10, "constraint projection tolerance")

	rootCmd.AddCommand(simulateCmd, reactionsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildAssembled(path string) (*simbody.System, *simbody.State, error) {
	mech, err := mechfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	sys, err := mech.Build()
	if err != nil {
		return nil, nil, err
	}
	sys.Workers = workers
	if err := sys.RealizeTopology(); err != nil {
		return nil, nil, err
	}
	s, err := sys.DefaultState()
	if err != nil {
		return nil, nil, err
	}
	if err := sys.Project(s, tol, nil, nil, nil); err != nil {
		return nil, nil, err
	}
	return sys, s, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sys, s, err := buildAssembled(args[0])
	if err != nil {
		return err
	}
	if plotBody < 0 || plotBody >= sys.NumBodies() {
		return fmt.Errorf("no body %d in mechanism of %d bodies", plotBody, sys.NumBodies())
	}

	// semi-implicit Euler with projection back onto the constraint manifold
	steps := int(duration / dt)
	heights := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		if err := sys.Realize(s, simbody.StageAcceleration); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		udot, _ := s.UDot()
		u := s.U()
		for j := range u {
			u[j] += dt * udot[j]
		}
		if err := s.SetU(u); err != nil {
			return err
		}
		if err := sys.Realize(s, simbody.StagePosition); err != nil {
			return err
		}
		qdot, err := sys.CalcQDot(s)
		if err != nil {
			return err
		}
		q := s.Q()
		for j := range q {
			q[j] += dt * qdot[j]
		}
		if err := s.SetQ(q); err != nil {
			return err
		}
		if err := sys.Project(s, tol, nil, nil, nil); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		x, err := s.BodyTransform(simbody.BodyIndex(plotBody))
		if err != nil {
			return err
		}
		heights = append(heights, x.Position.Y())
	}

	graph := asciigraph.Plot(heights,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("body %d height over %.2fs", plotBody, duration)),
	)
	fmt.Println(graph)
	return nil
}

func runReactions(cmd *cobra.Command, args []string) error {
	sys, s, err := buildAssembled(args[0])
	if err != nil {
		return err
	}
	if err := sys.Realize(s, simbody.StageAcceleration); err != nil {
		return err
	}
	reactions, err := sys.CalcMobilizerReactionForces(s)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("mobilizer reaction forces (body origin, ground frame)"))
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "body\ttorque\tforce")
	for i := 1; i < len(reactions); i++ {
		r := reactions[i]
		fmt.Fprintf(w, "%d\t[% .4f % .4f % .4f]\t[% .4f % .4f % .4f]\n",
			i,
			r.Angular.X(), r.Angular.Y(), r.Angular.Z(),
			r.Linear.X(), r.Linear.Y(), r.Linear.Z())
	}
	w.Flush()
	fmt.Print(b.String())
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d bodies, %d multipliers", sys.NumBodies()-1, sys.NumConstraintEquations())))
	return nil
}
