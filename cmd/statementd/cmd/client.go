package cmd

import (
	"context"
	"fmt"
	"os"

	"statement-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

var (
	clientName       string
	clientAccessCode string
	clientContact    string
	clientPhone      string
	clientType       string
)

// clientCmd groups client management operations.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients that own statements",
}

var clientCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a client",
	Long: `Create registers a client that statements can be ingested for. An
access code is generated unless one is provided; it must be unique.

Examples:
  statementd client create --name "Acme LLC"
  statementd client create --name "Acme LLC" --access-code acme-2024`,
	RunE: runClientCreate,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every client",
	RunE:  runClientList,
}

var clientDeleteCmd = &cobra.Command{
	Use:   "delete <client-id>",
	Short: "Delete a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientDelete,
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientCreateCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientDeleteCmd)

	clientCreateCmd.Flags().StringVarP(&clientName, "name", "n", "", "client name (required)")
	clientCreateCmd.Flags().StringVar(&clientAccessCode, "access-code", "", "access code (generated when omitted)")
	clientCreateCmd.Flags().StringVar(&clientContact, "contact", "", "contact name")
	clientCreateCmd.Flags().StringVar(&clientPhone, "phone", "", "contact phone")
	clientCreateCmd.Flags().StringVar(&clientType, "type", "", "client type")
	clientCreateCmd.MarkFlagRequired("name")
}

func runClientCreate(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	client := &models.Client{
		Name:         clientName,
		AccessCode:   clientAccessCode,
		ContactName:  clientContact,
		ContactPhone: clientPhone,
		ClientType:   clientType,
	}
	if err := app.store.CreateClient(context.Background(), client); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return printJSON(client)
}

func runClientList(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	clients, err := app.store.ListClients(context.Background())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	return printJSON(clients)
}

func runClientDelete(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	clientID, err := parseID(args[0], "client id")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer app.Close()

	if err := app.store.DeleteClient(context.Background(), clientID); err != nil {
		os.Exit(handler.HandleError(err))
	}
	fmt.Printf("Client %d deleted\n", clientID)
	return nil
}
