package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/route"
)

func newTestCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Validate the configuration and print the routes it would announce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(g.file)
			if err != nil {
				return err
			}
			describe(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func describe(w io.Writer, s *config.Settings) {
	fmt.Fprintf(w, "%s: %d checks, live reload %v, monitoring every %s\n",
		s.File, len(s.Checks), s.Daemon.LiveReload, s.Daemon.MonitoringInterval)
	for _, c := range s.Checks {
		fmt.Fprintf(w, "\n%s (%s every %s, rise %d, fall %d)\n", c.Name, c.Args.Method(), c.Interval, c.Rise, c.Fall)
		a := route.NewAnnouncer(c, nil, nil)
		for _, l := range a.Lines(route.Announce, c.Metric) {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
}
