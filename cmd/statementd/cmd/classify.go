package cmd

import (
	"context"
	"os"

	"statement-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

var classifyAccount uint

// classifyCmd runs a classification batch.
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify unlabeled transactions against the knowledge base",
	Long: `Classify labels every unclassified transaction by matching its
description against learned knowledge patterns. Rows without a
sufficiently confident match stay unclassified and are reported, not
failed. Already-labeled rows are never touched.

Examples:
  statementd classify --account 42
  statementd classify`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().UintVarP(&classifyAccount, "account", "a", 0, "account statement id (default: all statements)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	var report *models.ClassificationReport
	if classifyAccount != 0 {
		report, err = app.classifier.ClassifyAccount(context.Background(), classifyAccount)
	} else {
		report, err = app.classifier.ClassifyAll(context.Background())
	}
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	return printJSON(report)
}
