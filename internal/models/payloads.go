package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatementSnapshot is the structured result of parsing one statement
// document, as handed over by the excluded extraction layer.
type StatementSnapshot struct {
	ClientAccessCode string            `json:"clientAccessCode"`
	AccountInfo      AccountInfo       `json:"accountInfo"`
	Transactions     []TransactionRow  `json:"transactions"`
	Checks           []CheckRow        `json:"checks,omitempty"`
}

// AccountInfo carries the statement header fields of a snapshot.
type AccountInfo struct {
	BankName       string          `json:"bankName"`
	AccountHolder  string          `json:"accountHolder"`
	AccountNumber  string          `json:"accountNumber"`
	StatementFrom  time.Time       `json:"statementFrom"`
	StatementTo    time.Time       `json:"statementTo"`
	Beginning      decimal.Decimal `json:"beginningBalance"`
	Ending         decimal.Decimal `json:"endingBalance"`
	MonthReference string          `json:"monthReference,omitempty"`
	PDFURL         string          `json:"pdfUrl,omitempty"`
	PDFFileName    string          `json:"pdfFileName,omitempty"`
	PDFUploadedAt  *time.Time      `json:"pdfUploadDate,omitempty"`
	PDFFileSize    int64           `json:"pdfFileSize,omitempty"`
}

// Validate checks the snapshot header for required fields.
func (ai *AccountInfo) Validate() error {
	if strings.TrimSpace(ai.AccountHolder) == "" {
		return fmt.Errorf("account holder cannot be empty")
	}
	if strings.TrimSpace(ai.AccountNumber) == "" {
		return fmt.Errorf("account number cannot be empty")
	}
	if ai.StatementFrom.IsZero() || ai.StatementTo.IsZero() {
		return fmt.Errorf("statement period cannot be zero")
	}
	if ai.StatementTo.Before(ai.StatementFrom) {
		return fmt.Errorf("statement period ends before it starts")
	}
	return nil
}

// TransactionRow is one transaction in a snapshot or partial update. A
// row with an ID updates the existing ledger row; a row without an ID
// inserts a new one. Rows not mentioned in an update are left untouched.
type TransactionRow struct {
	ID          uint            `json:"id,omitempty"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"type,omitempty"`

	Location        string  `json:"location,omitempty"`
	ReferenceNumber string  `json:"referenceNumber,omitempty"`
	CheckNumber     string  `json:"checkNumber,omitempty"`
	Split           *string `json:"split,omitempty"`
}

// Validate checks the row and resolves its kind, deriving credit/debit
// from the amount sign when no explicit kind is given.
func (r *TransactionRow) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("transaction description cannot be empty")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	if r.Kind != "" {
		if _, err := ParseTransactionKind(r.Kind); err != nil {
			return err
		}
	}
	return nil
}

// ResolvedKind returns the row's parsed kind, falling back to the amount
// sign.
func (r *TransactionRow) ResolvedKind() TransactionKind {
	if r.Kind != "" {
		if kind, err := ParseTransactionKind(r.Kind); err == nil {
			return kind
		}
	}
	return KindFromAmount(r.Amount)
}

// CheckRow is one check record in a snapshot.
type CheckRow struct {
	CheckNumber string          `json:"checkNumber"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
}

// Validate checks the row for required fields.
func (r *CheckRow) Validate() error {
	if strings.TrimSpace(r.CheckNumber) == "" {
		return fmt.Errorf("check number cannot be empty")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("check date cannot be zero")
	}
	return nil
}

// AccountInfoPatch carries partial statement header updates. Only
// non-nil fields override; the balance pointers distinguish an explicit
// zero from "not provided".
type AccountInfoPatch struct {
	BankName         *string          `json:"bankName,omitempty"`
	AccountHolder    *string          `json:"accountHolder,omitempty"`
	AccountNumber    *string          `json:"accountNumber,omitempty"`
	BeginningBalance *decimal.Decimal `json:"beginningBalance,omitempty"`
	EndingBalance    *decimal.Decimal `json:"endingBalance,omitempty"`
	MonthReference   *string          `json:"monthReference,omitempty"`
}

// StatementUpdate is a partial update: header patches and/or transaction
// upserts. Both parts are optional; an empty update is rejected.
type StatementUpdate struct {
	AccountInfo  *AccountInfoPatch `json:"accountInfo,omitempty"`
	Transactions []TransactionRow  `json:"transactions,omitempty"`
}

// IsEmpty reports whether the update carries no changes at all.
func (u *StatementUpdate) IsEmpty() bool {
	return u.AccountInfo == nil && len(u.Transactions) == 0
}

// StatementView is the persisted statement as returned to callers. The
// summary is always present and consistent with the transactions at the
// time of the read.
type StatementView struct {
	AccountID    uint          `json:"accountId"`
	ClientID     uint          `json:"clientId"`
	AccountInfo  AccountInfo   `json:"accountInfo"`
	Status       string        `json:"status,omitempty"`
	Transactions []Transaction `json:"transactions"`
	Checks       []Check       `json:"checks"`
	Summary      Summary       `json:"summary"`
}

// ViewFromStatement flattens a loaded statement into the caller-facing
// shape.
func ViewFromStatement(stmt *AccountStatement) *StatementView {
	view := &StatementView{
		AccountID: stmt.ID,
		ClientID:  stmt.ClientID,
		AccountInfo: AccountInfo{
			BankName:       stmt.BankName,
			AccountHolder:  stmt.AccountHolder,
			AccountNumber:  stmt.AccountNumber,
			StatementFrom:  stmt.StatementFrom,
			StatementTo:    stmt.StatementTo,
			Beginning:      stmt.BeginningBalance,
			Ending:         stmt.EndingBalance,
			MonthReference: stmt.MonthReference,
			PDFURL:         stmt.PDFURL,
			PDFFileName:    stmt.PDFFileName,
			PDFUploadedAt:  stmt.PDFUploadedAt,
			PDFFileSize:    stmt.PDFFileSize,
		},
		Status:       stmt.Status,
		Transactions: stmt.Transactions,
		Checks:       stmt.Checks,
	}
	if stmt.Summary != nil {
		view.Summary = *stmt.Summary
	}
	if view.Transactions == nil {
		view.Transactions = []Transaction{}
	}
	if view.Checks == nil {
		view.Checks = []Check{}
	}
	return view
}

// Classification outcome statuses for per-row batch results.
const (
	OutcomeClassified   = "classified"
	OutcomeUnclassified = "unclassified"
)

// ClassificationOutcome is the per-row detail of a classification batch.
type ClassificationOutcome struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Category    string `json:"category,omitempty"`
}

// ClassificationReport summarizes one classification batch. An unmatched
// row is a reported outcome, not an error.
type ClassificationReport struct {
	TotalProcessed int                     `json:"totalProcessed"`
	Classified     int                     `json:"classified"`
	Unclassified   int                     `json:"unclassified"`
	Results        []ClassificationOutcome `json:"results"`
}
