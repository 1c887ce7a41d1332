package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON writes v as indented JSON to the command's stdout. Identifiers
// are printed verbatim, so HTML escaping is off.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
