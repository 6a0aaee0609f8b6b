package main

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ac "github.com/reweave/authcore"
	"github.com/reweave/authcore/config"
	gormstore "github.com/reweave/authcore/stores/gorm"
)

func TestOpenGormSQLiteSingleConnection(t *testing.T) {
	cfg := &config.Config{Store: "sqlite", DSN: filepath.Join(t.TempDir(), "authcore.db")}
	db, err := openGorm(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	// Concurrent writers against the file database must not fail with SQLITE_BUSY.
	store := gormstore.NewStore(db)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.CreateSession(&ac.Session{
				ID:        fmt.Sprintf("sess_%d", i),
				Token:     fmt.Sprintf("token_%d", i),
				UserID:    "user_1",
				CreatedAt: int64(i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
