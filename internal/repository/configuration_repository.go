package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aimd54/reward-economy/internal/models"
)

// ConfigurationRepository reads and writes the key/value configuration table.
type ConfigurationRepository struct {
	db *DB
}

// NewConfigurationRepository creates a new configuration repository.
func NewConfigurationRepository(db *DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get returns the raw value for key, or nil if the key is not set.
func (r *ConfigurationRepository) Get(key string) (json.RawMessage, error) {
	var rows []models.Configuration
	if err := r.db.Where("key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Value, nil
}

// Set stores value under key, replacing any previous value.
func (r *ConfigurationRepository) Set(key string, value json.RawMessage) error {
	row := &models.Configuration{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", key, err)
	}
	return nil
}
