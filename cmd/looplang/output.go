package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/looplang/pkg/config"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// writeRegisters prints the named registers, or every written register in
// name order when names is empty. A named register that was never written
// prints as 0.
func writeRegisters(w io.Writer, regs types.Registers, names []string, format string) error {
	if len(names) == 0 {
		names = regs.Names()
	}

	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(selectRegisters(regs, names))
	case config.OutputYAML:
		data, err := yaml.Marshal(selectRegisters(regs, names))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s = %s\n", name, regs.Get(name)); err != nil {
				return err
			}
		}
		return nil
	}
}

func selectRegisters(regs types.Registers, names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		v := regs.Get(name)
		if n, ok := v.AsNat(); ok {
			out[name] = n
		} else {
			out[name] = v.String()
		}
	}
	return out
}
