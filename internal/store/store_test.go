package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "store_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedAccount(t *testing.T, st *Store) uint {
	t.Helper()
	client := &models.Client{Name: "Acme LLC", AccessCode: "code-" + t.Name()}
	if err := st.DB().Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	stmt := &models.AccountStatement{
		ClientID:      client.ID,
		AccountHolder: "Acme LLC",
		AccountNumber: "****1234",
		StatementFrom: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		StatementTo:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:        models.StatusUploaded,
	}
	if err := st.DB().Create(stmt).Error; err != nil {
		t.Fatalf("seed statement: %v", err)
	}
	return stmt.ID
}

func TestUpsertTransactions(t *testing.T) {
	st := newTestStore(t)
	accountID := seedAccount(t, st)
	ctx := context.Background()

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	err := st.WithinTx(ctx, func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, accountID, []models.TransactionRow{
			{Date: date, Description: "DEPOSIT", Amount: decimal.RequireFromString("100.00")},
		})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var rows []models.Transaction
	if err := st.DB().Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Kind != models.KindCredit {
		t.Errorf("kind = %q, want credit derived from sign", rows[0].Kind)
	}

	// A row with an ID updates in place instead of inserting.
	err = st.WithinTx(ctx, func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, accountID, []models.TransactionRow{
			{ID: rows[0].ID, Date: date, Description: "DEPOSIT CORRECTED",
				Amount: decimal.RequireFromString("-100.00")},
		})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := st.DB().Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		t.Fatalf("reload rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d after update, want 1", len(rows))
	}
	if rows[0].Description != "DEPOSIT CORRECTED" || rows[0].Kind != models.KindDebit {
		t.Errorf("row = %q/%q, want corrected description and re-derived debit kind",
			rows[0].Description, rows[0].Kind)
	}
}

func TestUpsertTransactionsUnknownIDFailsBatch(t *testing.T) {
	st := newTestStore(t)
	accountID := seedAccount(t, st)

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	err := st.WithinTx(context.Background(), func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, accountID, []models.TransactionRow{
			{Date: date, Description: "GOOD ROW", Amount: decimal.RequireFromString("10.00")},
			{ID: 9999, Date: date, Description: "GHOST", Amount: decimal.RequireFromString("-1.00")},
		})
	})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}

	var count int64
	if err := st.DB().Model(&models.Transaction{}).
		Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("rows = %d after rolled-back batch, want 0", count)
	}
}

func TestUpsertScopedToAccount(t *testing.T) {
	st := newTestStore(t)
	first := seedAccount(t, st)

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	err := st.WithinTx(ctx, func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, first, []models.TransactionRow{
			{Date: date, Description: "ROW OF FIRST", Amount: decimal.RequireFromString("10.00")},
		})
	})
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}
	var row models.Transaction
	if err := st.DB().Where("account_id = ?", first).First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}

	// Another statement must not be able to edit it by id.
	client := &models.Client{Name: "Other", AccessCode: "other-" + t.Name()}
	if err := st.DB().Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	other := &models.AccountStatement{
		ClientID:      client.ID,
		AccountHolder: "Other LLC",
		AccountNumber: "****9999",
		StatementFrom: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		StatementTo:   time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	if err := st.DB().Create(other).Error; err != nil {
		t.Fatalf("seed other statement: %v", err)
	}

	err = st.WithinTx(ctx, func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, other.ID, []models.TransactionRow{
			{ID: row.ID, Date: date, Description: "HIJACK", Amount: decimal.RequireFromString("-5.00")},
		})
	})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found for cross-account edit", err)
	}
}

func TestUnclassifiedTransactions(t *testing.T) {
	st := newTestStore(t)
	accountID := seedAccount(t, st)
	ctx := context.Background()

	label := "Payroll"
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	err := st.WithinTx(ctx, func(tx *gorm.DB) error {
		return st.UpsertTransactions(tx, accountID, []models.TransactionRow{
			{Date: date, Description: "LABELED", Amount: decimal.RequireFromString("1.00"), Split: &label},
			{Date: date, Description: "BARE", Amount: decimal.RequireFromString("2.00")},
		})
	})
	if err != nil {
		t.Fatalf("seed rows: %v", err)
	}

	var rows []models.Transaction
	err = st.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		rows, err = st.UnclassifiedTransactions(tx, accountID)
		return err
	})
	if err != nil {
		t.Fatalf("UnclassifiedTransactions: %v", err)
	}
	if len(rows) != 1 || rows[0].Description != "BARE" {
		t.Fatalf("rows = %+v, want only the unlabeled one", rows)
	}
}

func TestPatchAccountInfoPartial(t *testing.T) {
	st := newTestStore(t)
	accountID := seedAccount(t, st)

	zero := decimal.Zero
	err := st.WithinTx(context.Background(), func(tx *gorm.DB) error {
		return st.PatchAccountInfo(tx, accountID, &models.AccountInfoPatch{
			EndingBalance: &zero,
		})
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	stmt, err := st.GetStatement(context.Background(), accountID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stmt.EndingBalance.Equal(decimal.Zero) {
		t.Errorf("ending balance = %s, want explicit zero", stmt.EndingBalance)
	}
	if stmt.AccountHolder != "Acme LLC" {
		t.Errorf("holder = %q, want untouched", stmt.AccountHolder)
	}
}

func TestKnowledgeAppendAndOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithinTx(ctx, func(tx *gorm.DB) error {
		for _, e := range []models.KnowledgeEntry{
			{Pattern: "zelle", Split: "Transfers"},
			{Pattern: "payroll", Split: "Income"},
		} {
			entry := e
			if err := st.AppendKnowledge(tx, &entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var entries []models.KnowledgeEntry
	err = st.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		entries, err = st.KnowledgeEntries(tx)
		return err
	})
	if err != nil {
		t.Fatalf("KnowledgeEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Pattern != "zelle" || entries[1].Pattern != "payroll" {
		t.Errorf("order = [%s %s], want insertion order by id", entries[0].Pattern, entries[1].Pattern)
	}
}

func TestClientCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	client := &models.Client{Name: "Acme LLC"}
	if err := st.CreateClient(ctx, client); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if client.AccessCode == "" {
		t.Fatal("access code must be generated when missing")
	}

	if err := st.CreateClient(ctx, &models.Client{Name: ""}); !errors.IsValidation(err) {
		t.Fatalf("err = %v, want validation for empty name", err)
	}
	dup := &models.Client{Name: "Copycat", AccessCode: client.AccessCode}
	if err := st.CreateClient(ctx, dup); !errors.IsValidation(err) {
		t.Fatalf("err = %v, want validation for duplicate access code", err)
	}

	loaded, err := st.GetClientByAccessCode(ctx, client.AccessCode)
	if err != nil {
		t.Fatalf("GetClientByAccessCode: %v", err)
	}
	if loaded.ID != client.ID {
		t.Errorf("loaded id = %d, want %d", loaded.ID, client.ID)
	}
	if _, err := st.GetClientByAccessCode(ctx, "missing"); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}

	if err := st.UpdateClient(ctx, client.ID, &models.Client{ContactName: "Pat"}); err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	reloaded, _ := st.GetClient(ctx, client.ID)
	if reloaded.ContactName != "Pat" {
		t.Errorf("contact = %q, want Pat", reloaded.ContactName)
	}

	second := &models.Client{Name: "Second"}
	if err := st.CreateClient(ctx, second); err != nil {
		t.Fatalf("CreateClient second: %v", err)
	}
	err = st.UpdateClient(ctx, second.ID, &models.Client{AccessCode: client.AccessCode})
	if !errors.IsValidation(err) {
		t.Fatalf("err = %v, want validation for access code collision", err)
	}

	if err := st.DeleteClient(ctx, second.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if err := st.DeleteClient(ctx, second.ID); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found on double delete", err)
	}
}
