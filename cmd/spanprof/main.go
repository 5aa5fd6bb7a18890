// Command spanprof records and inspects captures of the span profiler.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type app struct {
	logger   *logrus.Logger
	logLevel string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{logger: logrus.New()}
	a.logger.SetOutput(stderr)

	root := &cobra.Command{
		Use:           "spanprof",
		Short:         "Record and inspect span profiler captures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.logger.SetLevel(lvl)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warning", "log level (debug, info, warning, error)")

	root.AddCommand(
		a.recordCmd(),
		a.statsCmd(),
		a.threadsCmd(),
		a.framesCmd(),
		a.exportCmd(),
		a.convertCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "spanprof:", err)
		os.Exit(1)
	}
}
