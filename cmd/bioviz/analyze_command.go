package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bioviz/internal/config"
	"bioviz/internal/engine"
	"bioviz/internal/session"
)

func newAnalyzeCommand(cliCtx *commandContext) *cobra.Command {
	var templateID string
	var geneColumn string
	var valueColumn string
	var pvalueColumn string
	var dataType string
	var method string
	var pvalueThreshold float64
	var logfcThreshold float64

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Color a pathway template from an expression table",
		Long: "analyze is sugar for `exec ANALYZE`: it builds the column mapping and\n" +
			"filter payload from flags, runs the analysis, and prints the worker's\n" +
			"reply envelope.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(templateID) == "" {
				return errors.New("--template is required (pathway template id, e.g. hsa04110)")
			}
			file, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(file); err != nil {
				return fmt.Errorf("inspect input %q: %w", args[0], err)
			}

			mapping := map[string]any{
				"gene":  geneColumn,
				"value": valueColumn,
			}
			if strings.TrimSpace(pvalueColumn) != "" {
				mapping["pvalue"] = pvalueColumn
			}
			payload := map[string]any{
				"file_path":   file,
				"template_id": templateID,
				"data_type":   dataType,
				"mapping":     mapping,
				"filters": map[string]any{
					"method":           method,
					"pvalue_threshold": pvalueThreshold,
					"logfc_threshold":  logfcThreshold,
				},
			}

			return cliCtx.withSession(cmd, nil, func(ctx context.Context, sess *session.Session) error {
				resp, err := sess.Call(ctx, engine.CmdAnalyze, payload)
				if err != nil {
					return err
				}
				return writeEnvelope(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Pathway template id to color")
	cmd.Flags().StringVar(&geneColumn, "gene-column", "gene", "Column holding gene identifiers")
	cmd.Flags().StringVar(&valueColumn, "value-column", "log2fc", "Column holding expression values")
	cmd.Flags().StringVar(&pvalueColumn, "pvalue-column", "", "Optional column holding P-values")
	cmd.Flags().StringVar(&dataType, "data-type", "gene", "Identifier kind in the gene column (gene, protein, compound)")
	cmd.Flags().StringVar(&method, "method", "auto", "Analysis method forwarded to the worker")
	cmd.Flags().Float64Var(&pvalueThreshold, "pvalue-threshold", 0.05, "Significance cutoff for P-values")
	cmd.Flags().Float64Var(&logfcThreshold, "logfc-threshold", 1.0, "Significance cutoff for log2 fold change")
	return cmd
}
