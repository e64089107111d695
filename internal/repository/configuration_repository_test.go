package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationRepository_GetSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigurationRepository(db)

	value, err := repo.Get("checkin")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, repo.Set("checkin", json.RawMessage(`{"base_reward":50}`)))
	require.NoError(t, repo.Set("checkin", json.RawMessage(`{"base_reward":70}`)))

	value, err = repo.Get("checkin")
	require.NoError(t, err)
	assert.JSONEq(t, `{"base_reward":70}`, string(value))
}
