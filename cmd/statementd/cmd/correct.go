package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// correctCmd overrides one row's classification and teaches the
// knowledge base.
var correctCmd = &cobra.Command{
	Use:   "correct <transaction-id> <category>",
	Short: "Correct one transaction's classification and learn from it",
	Long: `Correct overwrites the classification label of one transaction with
a human-supplied category and appends the transaction's description as a
new knowledge pattern, atomically. Future classification batches will
match similar descriptions to this category.

Examples:
  statementd correct 1337 "Owner Draw"
  statementd correct 1338 "Software Subscriptions"`,
	Args: cobra.ExactArgs(2),
	RunE: runCorrect,
}

func init() {
	rootCmd.AddCommand(correctCmd)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	transactionID, err := parseID(args[0], "transaction id")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	if err := app.classifier.Correct(context.Background(), transactionID, args[1]); err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Transaction %d classified as %q; pattern learned\n", transactionID, args[1])
	return nil
}
