package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"bioviz/internal/protocol"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeEnvelope prints a reply envelope exactly as the worker sent it, only
// re-indented. Going through Raw instead of the decoded header keeps fields
// the correlation layer does not model.
func writeEnvelope(cmd *cobra.Command, resp *protocol.Response) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Raw, "", "  "); err != nil {
		_, werr := fmt.Fprintln(cmd.OutOrStdout(), string(resp.Raw))
		return werr
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
