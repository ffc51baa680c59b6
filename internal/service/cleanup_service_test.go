package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
)

func TestCleanupRemovesOnlyStaleDeactivated(t *testing.T) {
	db := newTestDB(t)
	requests := repository.NewRequestRepository(db)

	_, err := requests.RecordSearch("stale", "")
	require.NoError(t, err)
	require.NoError(t, requests.Deactivate("stale"))
	db.Model(&model.RequestRecord{}).Where("phrase = ?", "stale").
		Update("last_searched_at", time.Now().AddDate(0, 0, -120))

	_, err = requests.RecordSearch("fresh", "")
	require.NoError(t, err)

	svc := NewCleanupService(requests, 90)
	svc.runOnce()

	stale, err := requests.FindByPhrase("stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	fresh, err := requests.FindByPhrase("fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
