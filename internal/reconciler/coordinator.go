// Package reconciler coordinates atomic multi-row mutation of one
// account statement: ledger edits and summary recomputation always land
// in the same unit of work, so a caller can never observe a ledger that
// disagrees with its summary.
package reconciler

import (
	"context"
	"time"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/internal/store"
	"statement-reconciliation-service/internal/summary"
	"statement-reconciliation-service/pkg/errors"
	"statement-reconciliation-service/pkg/logger"

	"gorm.io/gorm"
)

// DefaultLockWait bounds how long an operation waits for the per-account
// lock before failing with a retryable conflict.
const DefaultLockWait = 30 * time.Second

// Coordinator orchestrates reconciliation operations. Every mutating
// operation follows the same shape: acquire the account lock with a
// bounded wait, run one unit of work, commit ledger and summary together
// or roll both back.
type Coordinator struct {
	store    *store.Store
	calc     *summary.Calculator
	lockWait time.Duration
	log      logger.Logger
}

// NewCoordinator creates a coordinator. A non-positive lockWait falls
// back to DefaultLockWait.
func NewCoordinator(st *store.Store, calc *summary.Calculator, lockWait time.Duration) *Coordinator {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Coordinator{
		store:    st,
		calc:     calc,
		lockWait: lockWait,
		log:      logger.WithComponent("reconciler"),
	}
}

// withAccountLock serializes fn against every other mutation of the same
// account. Mutations of different accounts proceed in parallel.
func (c *Coordinator) withAccountLock(ctx context.Context, accountID uint, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()

	release, err := c.store.LockAccount(lockCtx, accountID)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

// IngestStatement persists a parsed statement snapshot: the statement
// header, its transactions and checks, and a summary recomputed from the
// rows as persisted. Any summary the extraction layer computed itself is
// ignored; deriving it here from the ledger removes the dual-write risk.
func (c *Coordinator) IngestStatement(ctx context.Context, snapshot *models.StatementSnapshot) (*models.StatementView, error) {
	if snapshot == nil {
		return nil, errors.ValidationError(errors.CodeInvalidPayload, "snapshot", nil)
	}
	if err := snapshot.AccountInfo.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidField, "accountInfo", err.Error())
	}
	if err := validateRows(snapshot.Transactions); err != nil {
		return nil, err
	}
	for i := range snapshot.Checks {
		if err := snapshot.Checks[i].Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidField, "checks", err.Error()).
				WithContext("row_index", i)
		}
	}

	client, err := c.store.GetClientByAccessCode(ctx, snapshot.ClientAccessCode)
	if err != nil {
		return nil, err
	}

	stmt := statementFromSnapshot(client.ID, snapshot)
	err = c.store.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := c.store.CreateStatement(tx, stmt); err != nil {
			return err
		}
		_, err := c.calc.Recompute(tx, stmt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"account_id":   stmt.ID,
		"client_id":    client.ID,
		"transactions": len(snapshot.Transactions),
		"checks":       len(snapshot.Checks),
	}).Info("Statement ingested")

	return c.GetStatement(ctx, stmt.ID)
}

func statementFromSnapshot(clientID uint, snapshot *models.StatementSnapshot) *models.AccountStatement {
	info := snapshot.AccountInfo
	stmt := &models.AccountStatement{
		ClientID:         clientID,
		BankName:         info.BankName,
		AccountHolder:    info.AccountHolder,
		AccountNumber:    info.AccountNumber,
		StatementFrom:    info.StatementFrom,
		StatementTo:      info.StatementTo,
		BeginningBalance: info.Beginning,
		EndingBalance:    info.Ending,
		MonthReference:   info.MonthReference,
		Status:           models.StatusUploaded,
		PDFURL:           info.PDFURL,
		PDFFileName:      info.PDFFileName,
		PDFUploadedAt:    info.PDFUploadedAt,
		PDFFileSize:      info.PDFFileSize,
	}
	for _, row := range snapshot.Transactions {
		stmt.Transactions = append(stmt.Transactions, models.Transaction{
			Date:            row.Date,
			Description:     row.Description,
			Amount:          row.Amount,
			Kind:            row.ResolvedKind(),
			Location:        row.Location,
			ReferenceNumber: row.ReferenceNumber,
			CheckNumber:     row.CheckNumber,
			Split:           row.Split,
		})
	}
	for _, row := range snapshot.Checks {
		stmt.Checks = append(stmt.Checks, models.Check{
			CheckNumber: row.CheckNumber,
			Date:        row.Date,
			Amount:      row.Amount,
		})
	}
	return stmt
}

// ApplyUpdate applies a partial update to one statement: optional header
// field patches and/or transaction upserts, followed by summary
// recomputation, as one atomic unit of work under the account lock. On
// any failure the whole update rolls back; no partial ledger or summary
// state is ever visible.
func (c *Coordinator) ApplyUpdate(ctx context.Context, accountID uint, update *models.StatementUpdate) (*models.StatementView, error) {
	if update == nil || update.IsEmpty() {
		return nil, errors.ValidationError(errors.CodeInvalidPayload, "update", nil).
			WithContext("account_id", accountID)
	}
	if err := validateRows(update.Transactions); err != nil {
		return nil, err
	}

	err := c.withAccountLock(ctx, accountID, func() error {
		return c.store.WithinTx(ctx, func(tx *gorm.DB) error {
			if _, err := c.store.GetStatementTx(tx, accountID); err != nil {
				return err
			}
			if update.AccountInfo != nil {
				if err := c.store.PatchAccountInfo(tx, accountID, update.AccountInfo); err != nil {
					return err
				}
			}
			if len(update.Transactions) > 0 {
				if err := c.store.UpsertTransactions(tx, accountID, update.Transactions); err != nil {
					return err
				}
			}
			_, err := c.calc.Recompute(tx, accountID)
			return err
		})
	})
	if err != nil {
		c.log.WithError(err).WithField("account_id", accountID).Error("Statement update failed")
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"account_id": accountID,
		"rows":       len(update.Transactions),
	}).Info("Statement updated")

	return c.GetStatement(ctx, accountID)
}

func validateRows(rows []models.TransactionRow) error {
	var rowErrs errors.RowErrors
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			rowErrs.Append(errors.ValidationError(errors.CodeInvalidField, "transactions", err.Error()).
				WithContext("row_index", i))
		}
	}
	if rowErrs.HasErrors() {
		return &rowErrs
	}
	return nil
}

// DeleteTransaction removes one ledger row and recomputes the owning
// statement's summary in the same unit of work. Deleting an unknown id
// fails NotFound and leaves the summary untouched.
func (c *Coordinator) DeleteTransaction(ctx context.Context, transactionID uint) error {
	row, err := c.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	err = c.withAccountLock(ctx, row.AccountID, func() error {
		return c.store.WithinTx(ctx, func(tx *gorm.DB) error {
			if err := c.store.DeleteTransaction(tx, transactionID); err != nil {
				return err
			}
			_, err := c.calc.Recompute(tx, row.AccountID)
			return err
		})
	})
	if err != nil {
		return err
	}

	c.log.WithFields(logger.Fields{
		"transaction_id": transactionID,
		"account_id":     row.AccountID,
	}).Info("Transaction deleted")
	return nil
}

// UpdateStatus persists a lifecycle status under the account lock. The
// status set is open; no transition graph is enforced.
func (c *Coordinator) UpdateStatus(ctx context.Context, accountID uint, status string) error {
	return c.withAccountLock(ctx, accountID, func() error {
		return c.store.WithinTx(ctx, func(tx *gorm.DB) error {
			return c.store.UpdateStatus(tx, accountID, status)
		})
	})
}

// DeleteStatement removes a statement and everything it owns.
func (c *Coordinator) DeleteStatement(ctx context.Context, accountID uint) error {
	return c.withAccountLock(ctx, accountID, func() error {
		return c.store.WithinTx(ctx, func(tx *gorm.DB) error {
			return c.store.DeleteStatement(tx, accountID)
		})
	})
}

// GetStatement returns the persisted statement view. The summary in the
// view is always consistent with the transactions at the time of the
// read.
func (c *Coordinator) GetStatement(ctx context.Context, accountID uint) (*models.StatementView, error) {
	stmt, err := c.store.GetStatement(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return models.ViewFromStatement(stmt), nil
}

// ListStatements returns every persisted statement view, newest first.
func (c *Coordinator) ListStatements(ctx context.Context) ([]*models.StatementView, error) {
	stmts, err := c.store.ListStatements(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*models.StatementView, 0, len(stmts))
	for i := range stmts {
		views = append(views, models.ViewFromStatement(&stmts[i]))
	}
	return views, nil
}
