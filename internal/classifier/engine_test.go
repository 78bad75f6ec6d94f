package classifier

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/internal/store"
	"statement-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "classifier_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedStatement(t *testing.T, st *store.Store, descriptions ...string) uint {
	t.Helper()
	client := &models.Client{Name: "Acme LLC", AccessCode: "test-" + t.Name()}
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
	for _, desc := range descriptions {
		stmt.Transactions = append(stmt.Transactions, models.Transaction{
			Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description: desc,
			Amount:      decimal.RequireFromString("-50.00"),
			Kind:        models.KindDebit,
		})
	}
	if err := st.DB().Create(stmt).Error; err != nil {
		t.Fatalf("seed statement: %v", err)
	}
	return stmt.ID
}

func seedKnowledge(t *testing.T, st *store.Store, pattern, split string) {
	t.Helper()
	err := st.DB().Create(&models.KnowledgeEntry{Pattern: pattern, Split: split}).Error
	if err != nil {
		t.Fatalf("seed knowledge: %v", err)
	}
}

func TestClassifyAccount(t *testing.T) {
	st := newTestStore(t)
	seedKnowledge(t, st, "zelle", "Transfers")

	accountID := seedStatement(t, st, "ZELLE PAYMENT FROM JOHN DOE", "COFFEE SHOP PURCHASE")

	engine := NewEngine(st, nil, 0, 0)
	report, err := engine.ClassifyAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ClassifyAccount: %v", err)
	}

	if report.TotalProcessed != 2 || report.Classified != 1 || report.Unclassified != 1 {
		t.Fatalf("report = %d/%d/%d, want 2/1/1",
			report.TotalProcessed, report.Classified, report.Unclassified)
	}

	byDesc := map[string]models.ClassificationOutcome{}
	for _, r := range report.Results {
		byDesc[r.Description] = r
	}
	if got := byDesc["ZELLE PAYMENT FROM JOHN DOE"]; got.Status != models.OutcomeClassified || got.Category != "Transfers" {
		t.Errorf("zelle row = %+v, want classified as Transfers", got)
	}
	if got := byDesc["COFFEE SHOP PURCHASE"]; got.Status != models.OutcomeUnclassified {
		t.Errorf("coffee row = %+v, want unclassified", got)
	}

	stmt, err := st.GetStatement(context.Background(), accountID)
	if err != nil {
		t.Fatalf("reload statement: %v", err)
	}
	if stmt.Status != models.StatusClassified {
		t.Errorf("status = %q, want %q", stmt.Status, models.StatusClassified)
	}
}

func TestClassifyAccountNoMatchesKeepsStatus(t *testing.T) {
	st := newTestStore(t)
	seedKnowledge(t, st, "zelle", "Transfers")

	accountID := seedStatement(t, st, "COFFEE SHOP PURCHASE")

	engine := NewEngine(st, nil, 0, 0)
	report, err := engine.ClassifyAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ClassifyAccount: %v", err)
	}
	if report.Classified != 0 || report.Unclassified != 1 {
		t.Fatalf("report = %d classified, %d unclassified, want 0/1",
			report.Classified, report.Unclassified)
	}

	stmt, _ := st.GetStatement(context.Background(), accountID)
	if stmt.Status != models.StatusUploaded {
		t.Errorf("status = %q, want %q unchanged", stmt.Status, models.StatusUploaded)
	}
}

func TestClassifyAccountSkipsLabeledRows(t *testing.T) {
	st := newTestStore(t)
	seedKnowledge(t, st, "zelle", "Transfers")

	accountID := seedStatement(t, st, "ZELLE PAYMENT A", "ZELLE PAYMENT B")

	manual := "Owner Draw"
	var rows []models.Transaction
	if err := st.DB().Where("account_id = ?", accountID).Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if err := st.DB().Model(&rows[0]).Update("split", manual).Error; err != nil {
		t.Fatalf("label row: %v", err)
	}

	engine := NewEngine(st, nil, 0, 0)
	report, err := engine.ClassifyAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ClassifyAccount: %v", err)
	}
	if report.TotalProcessed != 1 {
		t.Fatalf("processed %d rows, want 1 (labeled row must be skipped)", report.TotalProcessed)
	}

	var kept models.Transaction
	if err := st.DB().First(&kept, rows[0].ID).Error; err != nil {
		t.Fatalf("reload labeled row: %v", err)
	}
	if kept.Split == nil || *kept.Split != manual {
		t.Errorf("manual label overwritten: %v", kept.Split)
	}
}

func TestClassifyAccountTieBreaksToEarliestEntry(t *testing.T) {
	st := newTestStore(t)
	seedKnowledge(t, st, "zelle", "Transfers")
	seedKnowledge(t, st, "zelle", "Income")

	accountID := seedStatement(t, st, "ZELLE PAYMENT FROM JOHN DOE")

	engine := NewEngine(st, nil, 0, 0)
	report, err := engine.ClassifyAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ClassifyAccount: %v", err)
	}
	if report.Results[0].Category != "Transfers" {
		t.Errorf("category = %q, want earliest entry %q", report.Results[0].Category, "Transfers")
	}
}

func TestClassifyAccountNotFound(t *testing.T) {
	st := newTestStore(t)
	engine := NewEngine(st, nil, 0, 0)

	_, err := engine.ClassifyAccount(context.Background(), 9999)
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCorrectLearnsKnowledge(t *testing.T) {
	st := newTestStore(t)
	accountID := seedStatement(t, st, "ACH HOLDCO LLC DISTRIB", "ACH HOLDCO LLC DISTRIB")

	var rows []models.Transaction
	if err := st.DB().Where("account_id = ?", accountID).Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}

	engine := NewEngine(st, nil, 0, 0)
	if err := engine.Correct(context.Background(), rows[0].ID, "Distributions"); err != nil {
		t.Fatalf("Correct: %v", err)
	}

	var corrected models.Transaction
	if err := st.DB().First(&corrected, rows[0].ID).Error; err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if corrected.Split == nil || *corrected.Split != "Distributions" {
		t.Fatalf("split = %v, want Distributions", corrected.Split)
	}

	var entries []models.KnowledgeEntry
	if err := st.DB().Find(&entries).Error; err != nil {
		t.Fatalf("load knowledge: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("knowledge entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Pattern != "ACH HOLDCO LLC DISTRIB" || entry.Split != "Distributions" {
		t.Errorf("entry = %+v, want pattern/split from the corrected row", entry)
	}
	if entry.Debit == nil || !entry.Debit.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("debit sample = %v, want 50.00", entry.Debit)
	}

	// The learned pattern now classifies the sibling row.
	report, err := engine.ClassifyAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ClassifyAccount after correction: %v", err)
	}
	if report.Classified != 1 {
		t.Fatalf("classified = %d, want 1 via learned entry", report.Classified)
	}
	if report.Results[0].Category != "Distributions" {
		t.Errorf("category = %q, want Distributions", report.Results[0].Category)
	}
}

func TestCorrectUnknownTransaction(t *testing.T) {
	st := newTestStore(t)
	engine := NewEngine(st, nil, 0, 0)

	if err := engine.Correct(context.Background(), 404, "Anything"); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := engine.Correct(context.Background(), 404, ""); !errors.IsValidation(err) {
		t.Fatalf("err = %v, want validation for empty category", err)
	}
}
