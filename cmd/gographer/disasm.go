package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volexity/gographer/pkg/disasm"
	"github.com/volexity/gographer/pkg/oracle/decode"
	"github.com/volexity/gographer/pkg/oracle/objfile"
)

func newDisasmCmd() *cobra.Command {
	var (
		filter string
		subset float32
	)

	cmd := &cobra.Command{
		Use:   "disasm <path>",
		Short: "Disassemble one binary and print its recovered control-flow graphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%v", r)
				}
			}()

			objects := objfile.Oracle{}
			d, err := disasm.New(args[0], decode.New(objects), objects)
			if err != nil {
				return err
			}

			if filter != "" {
				d, err = d.FilterSymbol(filter)
				if err != nil {
					return fmt.Errorf("invalid --filter expression: %w", err)
				}
			}

			if subset > 0 {
				d = d.Subset(subset, nil)
			}

			for _, g := range d.Graphs {
				fmt.Printf("%#x %s (%d blocks)\n", g.Offset, g.Name, len(g.Blocks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Keep only graphs whose name matches this regular expression")
	cmd.Flags().Float32Var(&subset, "subset", 0, "Randomly sample this fraction (0,1] of graphs")

	return cmd
}
