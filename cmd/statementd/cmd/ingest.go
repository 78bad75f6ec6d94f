package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"statement-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

var ingestFile string

// ingestCmd persists a parsed statement snapshot.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a parsed statement snapshot",
	Long: `Ingest persists a statement snapshot produced by the extraction
layer: the statement header, its transactions and checks. The summary is
recomputed from the persisted rows; any summary present in the snapshot
file is ignored.

The snapshot JSON must reference an existing client by access code.

Examples:
  statementd ingest --file snapshot.json
  statementd ingest -f - < snapshot.json`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "snapshot JSON file, or - for stdin (required)")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	snapshot, err := readSnapshot(ingestFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	view, err := app.reconciler.IngestStatement(context.Background(), snapshot)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	return printJSON(view)
}

func readSnapshot(path string) (*models.StatementSnapshot, error) {
	var reader *os.File
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var snapshot models.StatementSnapshot
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot JSON: %w", err)
	}
	return &snapshot, nil
}
