package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "timetable", nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "master:normal", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "master:normal", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "master:*"))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "timetable:master:normal", NewCacheRepository(nil, "timetable", nil).key("master:normal"))
	assert.Equal(t, "master:normal", NewCacheRepository(nil, "", nil).key("master:normal"))
}
