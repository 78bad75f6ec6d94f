package store

import (
	"context"
	"strings"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateClient persists a new client. A missing access code is generated;
// a taken one is rejected so every client stays addressable by a unique
// code.
func (s *Store) CreateClient(ctx context.Context, client *models.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return errors.ValidationError(errors.CodeMissingField, "clientName", nil)
	}
	if client.AccessCode == "" {
		client.AccessCode = uuid.NewString()
	}

	return s.WithinTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Client{}).
			Where("access_code = ?", client.AccessCode).
			Count(&count).Error; err != nil {
			return errors.PersistenceError(errors.CodeQueryError, "check access code", err)
		}
		if count > 0 {
			return errors.ValidationError(errors.CodeDuplicateValue, "accessCode", client.AccessCode)
		}
		if err := tx.Create(client).Error; err != nil {
			return errors.PersistenceError(errors.CodeWriteError, "create client", err)
		}
		return nil
	})
}

// GetClientByAccessCode resolves a client from its access code.
func (s *Store) GetClientByAccessCode(ctx context.Context, accessCode string) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).Where("access_code = ?", accessCode).First(&client).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.ClientNotFound(accessCode)
	}
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load client", err)
	}
	return &client, nil
}

// GetClient loads one client by id.
func (s *Store) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).First(&client, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.ClientNotFound("by id")
	}
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "load client", err)
	}
	return &client, nil
}

// ListClients returns every client.
func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&clients).Error; err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryError, "list clients", err)
	}
	return clients, nil
}

// UpdateClient applies non-zero fields of updates to an existing client.
// An access code change must not collide with another client.
func (s *Store) UpdateClient(ctx context.Context, id uint, updates *models.Client) error {
	return s.WithinTx(ctx, func(tx *gorm.DB) error {
		var client models.Client
		err := tx.First(&client, id).Error
		if err == gorm.ErrRecordNotFound {
			return errors.ClientNotFound("by id")
		}
		if err != nil {
			return errors.PersistenceError(errors.CodeQueryError, "load client", err)
		}

		if updates.AccessCode != "" && updates.AccessCode != client.AccessCode {
			var count int64
			if err := tx.Model(&models.Client{}).
				Where("access_code = ? AND id <> ?", updates.AccessCode, id).
				Count(&count).Error; err != nil {
				return errors.PersistenceError(errors.CodeQueryError, "check access code", err)
			}
			if count > 0 {
				return errors.ValidationError(errors.CodeDuplicateValue, "accessCode", updates.AccessCode)
			}
		}

		if err := tx.Model(&client).Updates(updates).Error; err != nil {
			return errors.PersistenceError(errors.CodeWriteError, "update client", err)
		}
		return nil
	})
}

// DeleteClient removes one client.
func (s *Store) DeleteClient(ctx context.Context, id uint) error {
	return s.WithinTx(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(&models.Client{}, id)
		if result.Error != nil {
			return errors.PersistenceError(errors.CodeWriteError, "delete client", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.ClientNotFound("by id")
		}
		return nil
	})
}
