package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/schema"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [key]",
		Short: "Print the normalized seed document for a config key",
		Long: `Print the document a config key is seeded with on first read.

The seed goes through the same validation and normalization as a write, so a
broken seed fails here before it reaches a database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := models.PricingKey
			if len(args) == 1 {
				key = args[0]
			}

			registry := schema.Default()
			sch, ok := registry.Lookup(key)
			if !ok {
				return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(registry.Keys(), ", "))
			}

			value, err := sch.Seed()
			if err != nil {
				return fmt.Errorf("seed for %q is invalid: %w", key, err)
			}

			var out bytes.Buffer
			if err := json.Indent(&out, value, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')

			_, err = cmd.OutOrStdout().Write(out.Bytes())
			return err
		},
	}
}
