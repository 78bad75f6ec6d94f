// Package summary derives the aggregate totals of one account statement
// from its current ledger. The summary is a materialized view: it is
// recomputed in full inside the same unit of work as the mutation that
// triggered it, never updated incrementally, so it can never drift from
// the ledger.
package summary

import (
	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"
	"statement-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Calculator recomputes and persists statement summaries.
type Calculator struct {
	log logger.Logger
}

// NewCalculator creates a summary calculator.
func NewCalculator() *Calculator {
	return &Calculator{log: logger.WithComponent("summary")}
}

// Recompute scans every transaction and check currently owned by the
// account, folds the magnitudes by kind and upserts the account's
// summary row, all inside the caller's transaction scope. Missing kinds
// yield zero, never null. Cost is O(rows) per account, which is fine:
// statements are bounded at hundreds of rows.
//
// Recompute is idempotent: two runs without an intervening mutation
// produce identical totals.
func (c *Calculator) Recompute(tx *gorm.DB, accountID uint) (*models.Summary, error) {
	var transactions []models.Transaction
	err := tx.Select("amount", "kind").
		Where("account_id = ?", accountID).
		Find(&transactions).Error
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "scan ledger for summary", err).
			WithContext("account_id", accountID)
	}

	var checks []models.Check
	err = tx.Select("amount").
		Where("account_id = ?", accountID).
		Find(&checks).Error
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "scan checks for summary", err).
			WithContext("account_id", accountID)
	}

	summary := Fold(accountID, transactions, checks)

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_deposits", "total_withdrawals", "total_checks", "total_fees", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeWriteError, "upsert summary", err).
			WithContext("account_id", accountID)
	}

	c.log.WithFields(logger.Fields{
		"account_id":        accountID,
		"total_deposits":    summary.TotalDeposits,
		"total_withdrawals": summary.TotalWithdrawals,
		"total_checks":      summary.TotalChecks,
		"total_fees":        summary.TotalFees,
	}).Debug("Summary recomputed")

	return summary, nil
}

// Fold partitions transactions by kind and sums absolute magnitudes.
// Check rows from the checks table count toward total_checks alongside
// check-kind transactions.
func Fold(accountID uint, transactions []models.Transaction, checks []models.Check) *models.Summary {
	summary := &models.Summary{
		AccountID:        accountID,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalChecks:      decimal.Zero,
		TotalFees:        decimal.Zero,
	}

	for _, t := range transactions {
		magnitude := t.Amount.Abs()
		switch t.Kind {
		case models.KindCredit:
			summary.TotalDeposits = summary.TotalDeposits.Add(magnitude)
		case models.KindDebit:
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(magnitude)
		case models.KindCheck:
			summary.TotalChecks = summary.TotalChecks.Add(magnitude)
		case models.KindFee:
			summary.TotalFees = summary.TotalFees.Add(magnitude)
		}
	}

	for _, ch := range checks {
		summary.TotalChecks = summary.TotalChecks.Add(ch.Amount.Abs())
	}

	return summary
}
