package database

import (
	"path/filepath"
	"testing"

	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Enable = true
	cfg.Database.Driver = "sqlite"
	cfg.DSN = filepath.Join(t.TempDir(), "history.db")

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.True(t, db.Migrator().HasTable(&models.AnalysisRecord{}))

	rec := models.AnalysisRecord{SessionID: "s1", PrimaryEntity: "Acme", Fingerprint: "ab"}
	require.NoError(t, db.Create(&rec).Error)
	require.Len(t, rec.ID, 36)
}

func TestConnect_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "oracle"

	_, err := Connect(cfg)
	require.Error(t, err)
}
