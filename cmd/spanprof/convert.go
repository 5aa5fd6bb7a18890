package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"honnef.co/go/spanprof/capture"
	"honnef.co/go/spanprof/export"
	"honnef.co/go/spanprof/profiler"
)

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	var hidden, indent bool
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a capture to Chrome trace JSON or a pprof profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.load(args[0])
			if err != nil {
				return err
			}
			var write func(w io.Writer, d *profiler.Data) error
			switch format {
			case "chrome":
				write = func(w io.Writer, d *profiler.Data) error {
					return export.WriteChromeTrace(w, d, export.ChromeOptions{
						IncludeHidden: hidden,
						ProcessName:   args[0],
						Indent:        indent,
					})
				}
			case "pprof":
				write = export.WritePprof
			default:
				return fmt.Errorf("unknown format %q, want chrome or pprof", format)
			}

			if out == "" || out == "-" {
				return write(cmd.OutOrStdout(), d)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := write(f, d); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{"file": out, "format": format}).Info("capture exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "chrome", "output format (chrome, pprof)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, standard output if empty")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include hidden threads in Chrome traces")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent Chrome trace JSON")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Recompress a capture according to the output file's extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := capture.SaveFile(args[1], d); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"from": capture.CompressionFor(args[0]),
				"to":   capture.CompressionFor(args[1]),
			}).Info("capture converted")
			return nil
		},
	}
}
