package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/portfolio-service/internal/service"
	"github.com/ndewijer/portfolio-service/internal/testutil"
	"github.com/ndewijer/portfolio-service/internal/version"
)

func TestSystemService_CheckHealth(t *testing.T) {
	t.Run("healthy when the store answers", func(t *testing.T) {
		store, _ := testutil.NewTestSQLiteStore(t)
		svc := testutil.NewTestSystemService(t, store)

		info := svc.CheckHealth(context.Background())

		assert.Equal(t, service.ServiceName, info.Service)
		assert.Equal(t, "healthy", info.Status)
		assert.Equal(t, "connected", info.Store)
		assert.Equal(t, version.Version, info.Version)
		assert.Empty(t, info.Error)
	})

	t.Run("unhealthy when the database is closed", func(t *testing.T) {
		store, db := testutil.NewTestSQLiteStore(t)
		svc := testutil.NewTestSystemService(t, store)
		db.Close()

		info := svc.CheckHealth(context.Background())

		assert.Equal(t, "unhealthy", info.Status)
		assert.Equal(t, "disconnected", info.Store)
		assert.NotEmpty(t, info.Error)
	})
}
