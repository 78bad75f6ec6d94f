package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"statement-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

var updateFile string

// statementCmd groups statement-level operations.
var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Inspect and mutate account statements",
}

var statementListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every statement with its summary",
	RunE:  runStatementList,
}

var statementShowCmd = &cobra.Command{
	Use:   "show <account-id>",
	Short: "Show one statement with transactions, checks and summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatementShow,
}

var statementUpdateCmd = &cobra.Command{
	Use:   "update <account-id>",
	Short: "Apply a partial update to one statement",
	Long: `Update applies header field patches and/or transaction upserts from
a JSON file as one atomic unit of work. Transaction rows carrying an id
update existing ledger rows; rows without an id insert new ones. Rows
not mentioned are left untouched. The statement summary is recomputed in
the same unit of work.

Example update file:
  {
    "accountInfo": {"endingBalance": "0"},
    "transactions": [
      {"id": 17, "date": "2024-03-12T00:00:00Z", "description": "POS PURCHASE", "amount": "-250.00"},
      {"date": "2024-03-25T00:00:00Z", "description": "WIRE IN", "amount": "300.00"}
    ]
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runStatementUpdate,
}

var statementDeleteCmd = &cobra.Command{
	Use:   "delete <account-id>",
	Short: "Delete a statement and everything it owns",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatementDelete,
}

var statementStatusCmd = &cobra.Command{
	Use:   "set-status <account-id> <status>",
	Short: "Set a statement's lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatementStatus,
}

var transactionDeleteCmd = &cobra.Command{
	Use:   "delete-transaction <transaction-id>",
	Short: "Delete one transaction and recompute the owning summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransactionDelete,
}

func init() {
	rootCmd.AddCommand(statementCmd)
	statementCmd.AddCommand(statementListCmd)
	statementCmd.AddCommand(statementShowCmd)
	statementCmd.AddCommand(statementUpdateCmd)
	statementCmd.AddCommand(statementDeleteCmd)
	statementCmd.AddCommand(statementStatusCmd)
	statementCmd.AddCommand(transactionDeleteCmd)

	statementUpdateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "update JSON file, or - for stdin (required)")
	statementUpdateCmd.MarkFlagRequired("file")
}

func parseID(arg, what string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be a positive integer", what, arg)
	}
	return uint(id), nil
}

func runStatementList(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	views, err := app.reconciler.ListStatements(context.Background())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	return printJSON(views)
}

func runStatementShow(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	accountID, err := parseID(args[0], "account id")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	view, err := app.reconciler.GetStatement(context.Background(), accountID)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	return printJSON(view)
}

func runStatementUpdate(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	accountID, err := parseID(args[0], "account id")
	if err != nil {
		return err
	}

	update, err := readUpdate(updateFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	view, err := app.reconciler.ApplyUpdate(context.Background(), accountID, update)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	return printJSON(view)
}

func runStatementDelete(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	accountID, err := parseID(args[0], "account id")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	if err := app.reconciler.DeleteStatement(context.Background(), accountID); err != nil {
		os.Exit(handler.HandleError(err))
	}
	fmt.Printf("Statement %d deleted\n", accountID)
	return nil
}

func runStatementStatus(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	accountID, err := parseID(args[0], "account id")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	if err := app.reconciler.UpdateStatus(context.Background(), accountID, args[1]); err != nil {
		os.Exit(handler.HandleError(err))
	}
	fmt.Printf("Statement %d status set to %q\n", accountID, args[1])
	return nil
}

func runTransactionDelete(cmd *cobra.Command, args []string) error {
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

	if err := app.reconciler.DeleteTransaction(context.Background(), transactionID); err != nil {
		os.Exit(handler.HandleError(err))
	}
	fmt.Printf("Transaction %d deleted\n", transactionID)
	return nil
}

func readUpdate(path string) (*models.StatementUpdate, error) {
	var reader *os.File
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open update file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var update models.StatementUpdate
	if err := json.NewDecoder(reader).Decode(&update); err != nil {
		return nil, fmt.Errorf("decode update JSON: %w", err)
	}
	return &update, nil
}
