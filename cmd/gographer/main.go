// Command gographer compares the control-flow graphs of one sample
// binary against a set of reference binaries and reports a similarity
// score per method and per binary.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/volexity/gographer/pkg/gglog"
	"github.com/volexity/gographer/pkg/grapher"
	"github.com/volexity/gographer/pkg/oracle/decode"
	"github.com/volexity/gographer/pkg/oracle/objfile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gographer: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output     string
		threshold  float32
		noProgress bool
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "gographer sample_path reference_path...",
		Short: "Compare control-flow graphs across binaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%v", r)
				}
			}()

			logger := gglog.New(logLevel)

			samplePath := args[0]
			referencePaths := args[1:]

			items := make([]grapher.Labeled, 0, len(referencePaths)+1)
			for _, path := range referencePaths {
				items = append(items, grapher.Labeled{Label: filepath.Base(path), Path: path})
			}
			items = append(items, grapher.Labeled{Label: filepath.Base(samplePath), Path: samplePath})

			objects := objfile.Oracle{}
			g := grapher.Grapher{
				Threshold:    threshold,
				Decoder:      decode.New(objects),
				Symbols:      objects,
				ShowProgress: !noProgress,
			}

			logger.WithField("count", len(items)).Info("disassembling binaries")
			disassemblies, err := g.GenerateGraphs(cmd.Context(), items)
			if err != nil {
				return fmt.Errorf("disassembly failed: %w", err)
			}

			sampleLabel := filepath.Base(samplePath)
			sampleIndex := -1
			for i, d := range disassemblies {
				if d.Name == sampleLabel {
					sampleIndex = i
					break
				}
			}
			if sampleIndex < 0 {
				return fmt.Errorf("missing sample disassembly for %q", samplePath)
			}
			sample := disassemblies[sampleIndex]
			references := append(disassemblies[:sampleIndex:sampleIndex], disassemblies[sampleIndex+1:]...)
			references = append(references, sample)

			logger.Info("comparing control-flow graphs")
			report, err := g.Compare(cmd.Context(), sample, references)
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			data, err := report.ToJSON()
			if err != nil {
				return fmt.Errorf("encoding report: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
				logger.WithField("path", output).Info("report written")
				return nil
			}

			if color.NoColor {
				fmt.Println(string(data))
			} else {
				fmt.Println(colorizeJSON(string(data)))
			}
			return nil
		},
	}

	root.Flags().StringVarP(&output, "output", "o", "", "Write the JSON report to this path instead of stdout")
	root.Flags().Float32VarP(&threshold, "threshold", "t", 0.0, "Minimum similarity for a match to be recorded")
	root.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	root.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(newDisasmCmd())
	return root
}

