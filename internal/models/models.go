package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind partitions ledger rows for aggregation.
type TransactionKind string

const (
	// KindCredit is a deposit; amounts are positive.
	KindCredit TransactionKind = "credit"
	// KindDebit is a withdrawal; amounts are negative.
	KindDebit TransactionKind = "debit"
	// KindCheck is a cleared check payment.
	KindCheck TransactionKind = "check"
	// KindFee is a bank service charge.
	KindFee TransactionKind = "fee"
)

// String returns the string representation of the kind.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid checks if the transaction kind is one of the known values.
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindCredit, KindDebit, KindCheck, KindFee:
		return true
	}
	return false
}

// ParseTransactionKind parses a kind from string, accepting common aliases.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "cr", "deposit":
		return KindCredit, nil
	case "debit", "dr", "withdrawal":
		return KindDebit, nil
	case "check", "cheque":
		return KindCheck, nil
	case "fee", "charge", "service_fee":
		return KindFee, nil
	default:
		return "", fmt.Errorf("invalid transaction kind '%s': must be credit, debit, check or fee", s)
	}
}

// KindFromAmount derives credit/debit from the amount sign. The sign is
// the source of truth for the credit/debit distinction used in
// aggregation; check and fee kinds only come from explicit labels.
func KindFromAmount(amount decimal.Decimal) TransactionKind {
	if amount.IsNegative() {
		return KindDebit
	}
	return KindCredit
}

// Statement lifecycle statuses. The set is open: the store persists and
// reports whatever status it is given without validating transitions.
const (
	StatusUploaded   = "uploaded"
	StatusClassified = "Classified"
)

// Client owns account statements and is identified by a unique access
// code.
type Client struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null" json:"clientName"`
	AccessCode   string `gorm:"uniqueIndex;not null" json:"accessCode"`
	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	ClientType   string `json:"clientType,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	Statements []AccountStatement `gorm:"foreignKey:ClientID" json:"-"`
}

// AccountStatement is the aggregate root: one bank statement for one
// client and period. It owns its transactions, checks and exactly one
// derived summary; deleting a statement cascades to all three.
type AccountStatement struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	ClientID uint `gorm:"index" json:"clientId"`

	BankName         string          `json:"bankName"`
	AccountHolder    string          `gorm:"not null" json:"accountHolder"`
	AccountNumber    string          `gorm:"not null" json:"accountNumber"`
	StatementFrom    time.Time       `gorm:"not null" json:"statementFrom"`
	StatementTo      time.Time       `gorm:"not null" json:"statementTo"`
	BeginningBalance decimal.Decimal `gorm:"type:decimal(20,2)" json:"beginningBalance"`
	EndingBalance    decimal.Decimal `gorm:"type:decimal(20,2)" json:"endingBalance"`
	MonthReference   string          `json:"monthReference,omitempty"`
	Status           string          `gorm:"size:64" json:"status,omitempty"`

	// Source document reference; populated by the excluded upload layer.
	PDFURL        string     `json:"pdfUrl,omitempty"`
	PDFFileName   string     `json:"pdfFileName,omitempty"`
	PDFUploadedAt *time.Time `json:"pdfUploadDate,omitempty"`
	PDFFileSize   int64      `json:"pdfFileSize,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	Transactions []Transaction `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
	Checks       []Check       `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"checks,omitempty"`
	Summary      *Summary      `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"summary,omitempty"`
}

// Transaction is a single ledger row owned by an account statement.
type Transaction struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	AccountID uint `gorm:"index;not null" json:"accountId"`

	Date        time.Time       `gorm:"not null" json:"date"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Kind        TransactionKind `gorm:"size:16;not null" json:"type"`

	Location        string `json:"location,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	CheckNumber     string `json:"checkNumber,omitempty"`

	// Split is the classification label. Nil means unclassified; the
	// classifier only ever fills empty labels, manual corrections may
	// overwrite.
	Split *string `gorm:"size:255" json:"split,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// IsClassified reports whether the row carries a classification label.
func (t *Transaction) IsClassified() bool {
	return t.Split != nil && *t.Split != ""
}

// Magnitude returns the absolute value of the transaction amount.
func (t *Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// Check is an immutable record of a cleared check. Checks contribute to
// summary totals but are never classified.
type Check struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	AccountID uint `gorm:"index;not null" json:"-"`

	CheckNumber string          `gorm:"not null" json:"checkNumber"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`

	CreatedAt time.Time `json:"-"`
}

// Summary holds the derived aggregate totals for one statement. It is
// never independently authored: every committed ledger mutation replaces
// it with a fresh recomputation.
type Summary struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	AccountID uint `gorm:"uniqueIndex;not null" json:"-"`

	TotalDeposits    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalWithdrawals"`
	TotalChecks      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalChecks"`
	TotalFees        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalFees"`

	UpdatedAt time.Time `json:"-"`
}

// Equal compares the four totals of two summaries.
func (s *Summary) Equal(other *Summary) bool {
	if other == nil {
		return false
	}
	return s.TotalDeposits.Equal(other.TotalDeposits) &&
		s.TotalWithdrawals.Equal(other.TotalWithdrawals) &&
		s.TotalChecks.Equal(other.TotalChecks) &&
		s.TotalFees.Equal(other.TotalFees)
}

// KnowledgeEntry is one learned (pattern, category) association. The
// table is append-only: corrections add entries, history is never edited,
// preserving an audit trail of how categories were learned.
type KnowledgeEntry struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Kind    string `gorm:"size:20" json:"type,omitempty"`
	Name    string `gorm:"size:255" json:"name,omitempty"`
	Pattern string `gorm:"size:255;not null" json:"memo"`
	Split   string `gorm:"size:255;not null" json:"split"`
	Account string `gorm:"size:255" json:"account,omitempty"`

	// Sample magnitudes from the transaction that taught this entry,
	// kept for audit.
	Debit  *decimal.Decimal `gorm:"type:decimal(20,2)" json:"debit,omitempty"`
	Credit *decimal.Decimal `gorm:"type:decimal(20,2)" json:"credit,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName keeps the knowledge base under its historical table name.
func (KnowledgeEntry) TableName() string {
	return "classification_knowledge"
}
