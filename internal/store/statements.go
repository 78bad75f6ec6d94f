package store

import (
	"context"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"

	"gorm.io/gorm"
)

// CreateStatement persists a statement with its children inside the
// caller's transaction scope.
func (s *Store) CreateStatement(tx *gorm.DB, stmt *models.AccountStatement) error {
	if err := tx.Create(stmt).Error; err != nil {
		return errors.PersistenceError(errors.CodeWriteError, "create statement", err).
			WithContext("client_id", stmt.ClientID)
	}
	return nil
}

// GetStatement loads one statement with its transactions, checks and
// summary.
func (s *Store) GetStatement(ctx context.Context, id uint) (*models.AccountStatement, error) {
	return s.loadStatement(s.db.WithContext(ctx), id, true)
}

// GetStatementTx loads one statement header inside the caller's
// transaction scope, without children.
func (s *Store) GetStatementTx(tx *gorm.DB, id uint) (*models.AccountStatement, error) {
	return s.loadStatement(tx, id, false)
}

func (s *Store) loadStatement(db *gorm.DB, id uint, preload bool) (*models.AccountStatement, error) {
	if preload {
		db = db.
			Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("date DESC, id DESC") }).
			Preload("Checks").
			Preload("Summary")
	}

	var stmt models.AccountStatement
	err := db.First(&stmt, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.AccountNotFound(id)
	}
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load statement", err).
			WithContext("account_id", id)
	}
	return &stmt, nil
}

// ListStatements returns every statement with children, newest first.
func (s *Store) ListStatements(ctx context.Context) ([]models.AccountStatement, error) {
	var stmts []models.AccountStatement
	err := s.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("date DESC, id DESC") }).
		Preload("Checks").
		Preload("Summary").
		Order("id DESC").
		Find(&stmts).Error
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "list statements", err)
	}
	return stmts, nil
}

// PatchAccountInfo applies the provided header fields inside the
// caller's transaction scope. Only non-nil patch fields override; the
// balance pointers let an explicit zero through.
func (s *Store) PatchAccountInfo(tx *gorm.DB, accountID uint, patch *models.AccountInfoPatch) error {
	updates := map[string]interface{}{}
	if patch.BankName != nil {
		updates["bank_name"] = *patch.BankName
	}
	if patch.AccountHolder != nil {
		updates["account_holder"] = *patch.AccountHolder
	}
	if patch.AccountNumber != nil {
		updates["account_number"] = *patch.AccountNumber
	}
	if patch.BeginningBalance != nil {
		updates["beginning_balance"] = *patch.BeginningBalance
	}
	if patch.EndingBalance != nil {
		updates["ending_balance"] = *patch.EndingBalance
	}
	if patch.MonthReference != nil {
		updates["month_reference"] = *patch.MonthReference
	}
	if len(updates) == 0 {
		return nil
	}

	err := tx.Model(&models.AccountStatement{}).
		Where("id = ?", accountID).
		Updates(updates).Error
	if err != nil {
		return errors.PersistenceError(errors.CodeWriteError, "patch account info", err).
			WithContext("account_id", accountID)
	}
	return nil
}

// UpdateStatus persists a lifecycle status. The status set is open; no
// transition graph is validated here.
func (s *Store) UpdateStatus(tx *gorm.DB, accountID uint, status string) error {
	result := tx.Model(&models.AccountStatement{}).
		Where("id = ?", accountID).
		Update("status", status)
	if result.Error != nil {
		return errors.PersistenceError(errors.CodeWriteError, "update status", result.Error).
			WithContext("account_id", accountID)
	}
	if result.RowsAffected == 0 {
		return errors.AccountNotFound(accountID)
	}
	return nil
}

// DeleteStatement removes a statement and all of its children inside the
// caller's transaction scope.
func (s *Store) DeleteStatement(tx *gorm.DB, accountID uint) error {
	var stmt models.AccountStatement
	err := tx.First(&stmt, accountID).Error
	if err == gorm.ErrRecordNotFound {
		return errors.AccountNotFound(accountID)
	}
	if err != nil {
		return errors.PersistenceError(errors.CodeQueryError, "load statement", err).
			WithContext("account_id", accountID)
	}

	for _, child := range []interface{}{&models.Transaction{}, &models.Check{}, &models.Summary{}} {
		if err := tx.Where("account_id = ?", accountID).Delete(child).Error; err != nil {
			return errors.PersistenceError(errors.CodeWriteError, "delete statement children", err).
				WithContext("account_id", accountID)
		}
	}
	if err := tx.Delete(&stmt).Error; err != nil {
		return errors.PersistenceError(errors.CodeWriteError, "delete statement", err).
			WithContext("account_id", accountID)
	}
	return nil
}
