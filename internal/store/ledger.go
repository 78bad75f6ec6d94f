package store

import (
	"context"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"

	"gorm.io/gorm"
)

// UpsertTransactions applies transaction rows to the ledger of one
// account inside the caller's transaction scope. Rows carrying an ID
// update the existing row matching (id, accountID); rows without an ID
// are inserted. Rows not mentioned are left untouched; there is no
// implicit deletion.
//
// A row whose ID resolves to no ledger row fails the whole batch, so the
// surrounding unit of work rolls back with nothing persisted.
func (s *Store) UpsertTransactions(tx *gorm.DB, accountID uint, rows []models.TransactionRow) error {
	for _, row := range rows {
		if row.ID != 0 {
			if err := s.updateTransaction(tx, accountID, row); err != nil {
				return err
			}
			continue
		}
		if err := s.insertTransaction(tx, accountID, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) updateTransaction(tx *gorm.DB, accountID uint, row models.TransactionRow) error {
	updates := map[string]interface{}{
		"date":             row.Date,
		"description":      row.Description,
		"amount":           row.Amount,
		"kind":             row.ResolvedKind(),
		"location":         row.Location,
		"reference_number": row.ReferenceNumber,
		"check_number":     row.CheckNumber,
	}
	if row.Split != nil {
		updates["split"] = row.Split
	}

	result := tx.Model(&models.Transaction{}).
		Where("id = ? AND account_id = ?", row.ID, accountID).
		Updates(updates)
	if result.Error != nil {
		return errors.PersistenceError(errors.CodeWriteError, "update transaction", result.Error).
			WithContext("transaction_id", row.ID).
			WithContext("account_id", accountID)
	}
	if result.RowsAffected == 0 {
		return errors.TransactionNotFound(row.ID).WithContext("account_id", accountID)
	}
	return nil
}

func (s *Store) insertTransaction(tx *gorm.DB, accountID uint, row models.TransactionRow) error {
	record := models.Transaction{
		AccountID:       accountID,
		Date:            row.Date,
		Description:     row.Description,
		Amount:          row.Amount,
		Kind:            row.ResolvedKind(),
		Location:        row.Location,
		ReferenceNumber: row.ReferenceNumber,
		CheckNumber:     row.CheckNumber,
		Split:           row.Split,
	}
	if err := tx.Create(&record).Error; err != nil {
		return errors.PersistenceError(errors.CodeWriteError, "insert transaction", err).
			WithContext("account_id", accountID)
	}
	return nil
}

// GetTransaction loads one ledger row by id.
func (s *Store) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var row models.Transaction
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.TransactionNotFound(id)
	}
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load transaction", err).
			WithContext("transaction_id", id)
	}
	return &row, nil
}

// DeleteTransaction removes exactly one ledger row inside the caller's
// transaction scope. NotFound when the row is already gone.
func (s *Store) DeleteTransaction(tx *gorm.DB, id uint) error {
	result := tx.Delete(&models.Transaction{}, id)
	if result.Error != nil {
		return errors.PersistenceError(errors.CodeWriteError, "delete transaction", result.Error).
			WithContext("transaction_id", id)
	}
	if result.RowsAffected == 0 {
		return errors.TransactionNotFound(id)
	}
	return nil
}

// UnclassifiedTransactions returns the rows of one account (or of every
// account when accountID is zero) that carry no classification label,
// ordered by id for deterministic batch processing.
func (s *Store) UnclassifiedTransactions(tx *gorm.DB, accountID uint) ([]models.Transaction, error) {
	query := tx.Where("split IS NULL OR split = ''").Order("id ASC")
	if accountID != 0 {
		query = query.Where("account_id = ?", accountID)
	}

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load unclassified transactions", err).
			WithContext("account_id", accountID)
	}
	return rows, nil
}

// SetSplit writes the classification label of one row inside the
// caller's transaction scope.
func (s *Store) SetSplit(tx *gorm.DB, transactionID uint, split string) error {
	result := tx.Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Update("split", split)
	if result.Error != nil {
		return errors.PersistenceError(errors.CodeWriteError, "write classification label", result.Error).
			WithContext("transaction_id", transactionID)
	}
	if result.RowsAffected == 0 {
		return errors.TransactionNotFound(transactionID)
	}
	return nil
}
