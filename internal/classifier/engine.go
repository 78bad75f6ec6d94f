package classifier

import (
	"context"
	"time"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/internal/store"
	"statement-reconciliation-service/pkg/errors"
	"statement-reconciliation-service/pkg/logger"

	"gorm.io/gorm"
)

// Engine runs classification batches and learns from corrections. It
// only ever fills empty labels; already-labeled rows are never touched
// by a batch, so manual corrections always survive reclassification.
type Engine struct {
	store    *store.Store
	scorer   Scorer
	minScore float64
	lockWait time.Duration
	log      logger.Logger
}

// NewEngine creates a classification engine. A nil scorer falls back to
// the default MatchScorer; a non-positive minScore to DefaultMinScore.
func NewEngine(st *store.Store, scorer Scorer, minScore float64, lockWait time.Duration) *Engine {
	if scorer == nil {
		scorer = NewMatchScorer()
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	return &Engine{
		store:    st,
		scorer:   scorer,
		minScore: minScore,
		lockWait: lockWait,
		log:      logger.WithComponent("classifier"),
	}
}

// ClassifyAccount labels every unclassified transaction of one statement
// against the knowledge base, as one unit of work under the account
// lock. Rows with no match at or above the confidence floor stay
// unclassified and are reported, not failed. When at least one row gets
// a label the statement status moves to Classified.
func (e *Engine) ClassifyAccount(ctx context.Context, accountID uint) (*models.ClassificationReport, error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()

	release, err := e.store.LockAccount(lockCtx, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var report *models.ClassificationReport
	err = e.store.WithinTx(ctx, func(tx *gorm.DB) error {
		if _, err := e.store.GetStatementTx(tx, accountID); err != nil {
			return err
		}
		report, err = e.classifyInTx(tx, accountID)
		if err != nil {
			return err
		}
		if report.Classified > 0 {
			return e.store.UpdateStatus(tx, accountID, models.StatusClassified)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logger.Fields{
		"account_id":   accountID,
		"processed":    report.TotalProcessed,
		"classified":   report.Classified,
		"unclassified": report.Unclassified,
	}).Info("Classification batch finished")

	return report, nil
}

// ClassifyAll runs a classification batch for every persisted statement
// and merges the per-account reports. Accounts are processed one at a
// time, each under its own lock.
func (e *Engine) ClassifyAll(ctx context.Context) (*models.ClassificationReport, error) {
	stmts, err := e.store.ListStatements(ctx)
	if err != nil {
		return nil, err
	}

	merged := &models.ClassificationReport{Results: []models.ClassificationOutcome{}}
	for i := range stmts {
		report, err := e.ClassifyAccount(ctx, stmts[i].ID)
		if err != nil {
			return nil, err
		}
		merged.TotalProcessed += report.TotalProcessed
		merged.Classified += report.Classified
		merged.Unclassified += report.Unclassified
		merged.Results = append(merged.Results, report.Results...)
	}
	return merged, nil
}

func (e *Engine) classifyInTx(tx *gorm.DB, accountID uint) (*models.ClassificationReport, error) {
	entries, err := e.store.KnowledgeEntries(tx)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.UnclassifiedTransactions(tx, accountID)
	if err != nil {
		return nil, err
	}

	report := &models.ClassificationReport{
		TotalProcessed: len(rows),
		Results:        make([]models.ClassificationOutcome, 0, len(rows)),
	}

	for i := range rows {
		row := &rows[i]
		outcome := models.ClassificationOutcome{
			ID:          row.ID,
			Description: row.Description,
			Status:      models.OutcomeUnclassified,
		}

		if entry, ok := e.bestMatch(row.Description, entries); ok {
			if err := e.store.SetSplit(tx, row.ID, entry.Split); err != nil {
				return nil, err
			}
			outcome.Status = models.OutcomeClassified
			outcome.Category = entry.Split
			report.Classified++
		} else {
			report.Unclassified++
		}
		report.Results = append(report.Results, outcome)
	}

	return report, nil
}

// bestMatch picks the highest-scoring knowledge entry at or above the
// confidence floor. Entries arrive ordered by id and only a strictly
// better score replaces the current winner, so ties resolve to the
// earliest-learned entry.
func (e *Engine) bestMatch(description string, entries []models.KnowledgeEntry) (*models.KnowledgeEntry, bool) {
	var winner *models.KnowledgeEntry
	bestScore := 0.0

	for i := range entries {
		entry := &entries[i]
		if entry.Pattern == "" || entry.Split == "" {
			continue
		}
		score := e.scorer.Score(description, entry.Pattern)
		if score > bestScore {
			bestScore = score
			winner = entry
		}
	}

	if winner == nil || bestScore < e.minScore {
		return nil, false
	}
	return winner, true
}

// Correct overwrites one row's label with a human-supplied category and
// appends the (description, category) pair to the knowledge base, in the
// same unit of work. The new entry carries the row's magnitude as a
// debit or credit sample for audit.
func (e *Engine) Correct(ctx context.Context, transactionID uint, category string) error {
	if category == "" {
		return errors.ValidationError(errors.CodeMissingField, "category", nil)
	}

	row, err := e.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()
	release, err := e.store.LockAccount(lockCtx, row.AccountID)
	if err != nil {
		return err
	}
	defer release()

	err = e.store.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := e.store.SetSplit(tx, transactionID, category); err != nil {
			return err
		}
		return e.store.AppendKnowledge(tx, knowledgeFromRow(row, category))
	})
	if err != nil {
		return err
	}

	e.log.WithFields(logger.Fields{
		"transaction_id": transactionID,
		"category":       category,
	}).Info("Classification corrected")
	return nil
}

func knowledgeFromRow(row *models.Transaction, category string) *models.KnowledgeEntry {
	entry := &models.KnowledgeEntry{
		Kind:    row.Kind.String(),
		Pattern: row.Description,
		Split:   category,
	}

	magnitude := row.Magnitude()
	if row.Kind == models.KindCredit {
		entry.Credit = &magnitude
	} else {
		entry.Debit = &magnitude
	}
	return entry
}
