package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runtime"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse and statically check programs without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := parser.Dialect{Sugar: opts.sugar, Enhanced: opts.enhanced}
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				if err := checkFile(path, d); err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errNotAllOK, failed, len(args))
			}
			return nil
		},
	}
}

func checkFile(path string, d parser.Dialect) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = runtime.Compile(f, d)
	return err
}
