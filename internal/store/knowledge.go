package store

import (
	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"

	"gorm.io/gorm"
)

// KnowledgeEntries returns the whole knowledge base ordered by id. The
// classifier relies on that order to break score ties deterministically
// in favor of the earliest-learned entry.
func (s *Store) KnowledgeEntries(tx *gorm.DB) ([]models.KnowledgeEntry, error) {
	var entries []models.KnowledgeEntry
	if err := tx.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load knowledge base", err)
	}
	return entries, nil
}

// AppendKnowledge inserts a new knowledge entry inside the caller's
// transaction scope. The knowledge base is append-only: there is no
// update or delete path, so the history of how categories were learned
// stays intact.
func (s *Store) AppendKnowledge(tx *gorm.DB, entry *models.KnowledgeEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return errors.PersistenceError(errors.CodeWriteError, "append knowledge entry", err).
			WithContext("pattern", entry.Pattern)
	}
	return nil
}
