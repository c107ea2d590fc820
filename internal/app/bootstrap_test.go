package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/pipeline/snapshot"
)

func writeRouterDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		snapshot.KeyPartsKeywords:  "part\nparts\n",
		snapshot.KeyCreateKeywords: "create\n",
		snapshot.KeySpelling:       "contarct=contract\n",
	}
	for key, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, key+".txt"), []byte(body), 0o644))
	}
	return dir
}

func TestNewLoader(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	pg := database.NewPostgresFromDB(db)

	tests := []struct {
		name       string
		rc         config.RouterConfig
		pg         *database.PostgresClient
		sourceName string
		wantErr    bool
	}{
		{
			name:       "file source",
			rc:         config.RouterConfig{Source: config.SourceFile, ConfigDir: "/etc/router"},
			sourceName: "file:/etc/router",
		},
		{
			name:       "postgres source",
			rc:         config.RouterConfig{Source: config.SourcePostgres, ConfigTable: "router_config"},
			pg:         pg,
			sourceName: "postgres:router_config",
		},
		{
			name:    "postgres without connection",
			rc:      config.RouterConfig{Source: config.SourcePostgres, ConfigTable: "router_config"},
			wantErr: true,
		},
		{
			name:    "postgres with unsafe table name",
			rc:      config.RouterConfig{Source: config.SourcePostgres, ConfigTable: "config; drop table x"},
			pg:      pg,
			wantErr: true,
		},
		{
			name:    "unknown source",
			rc:      config.RouterConfig{Source: "s3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, err := NewLoader(tt.rc, tt.pg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sourceName, loader.Source.Name())
		})
	}
}

func TestNewLoader_CarriesRouterSettings(t *testing.T) {
	rc := config.RouterConfig{
		Source:              config.SourceFile,
		ConfigDir:           writeRouterDir(t),
		RuleSet:             "strict",
		StripDisallowed:     true,
		AllowUnicodeLetters: true,
		ExtraAllowed:        "-",
	}
	loader, err := NewLoader(rc, nil)
	require.NoError(t, err)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "strict", snap.Rules.Name)
	assert.True(t, snap.Normalize.AllowUnicodeLetters)
	assert.Equal(t, "-", snap.Normalize.ExtraAllowed)
	assert.Equal(t, 1, snap.Dictionary.Len())
}

func TestLoadClassifier(t *testing.T) {
	clf, err := LoadClassifier("")
	require.NoError(t, err)
	assert.Nil(t, clf)

	_, err = LoadClassifier(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v1","labels":["PARTS","HELP"],"stem":true}`), 0o644))
	clf, err = LoadClassifier(path)
	require.NoError(t, err)
	assert.NotNil(t, clf)
}

func TestScheduleReloads(t *testing.T) {
	store := snapshot.NewStore(snapshot.Loader{Source: snapshot.MapSource{
		snapshot.KeyPartsKeywords:  {"part"},
		snapshot.KeyCreateKeywords: {"create"},
		snapshot.KeySpelling:       {},
	}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := ScheduleReloads(ctx, store, "not a schedule", logger.NewTestLogger(t))
	assert.Error(t, err)

	c, err := ScheduleReloads(ctx, store, "@every 1s", logger.NewTestLogger(t))
	require.NoError(t, err)
	defer c.Stop()

	assert.Eventually(t, func() bool { return store.Load() != nil }, 3*time.Second, 10*time.Millisecond)
}

func TestShippedConfiguration(t *testing.T) {
	cfg, err := config.LoadFromFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	rc := cfg.Router
	rc.ConfigDir = filepath.Join("..", "..", "configs", "router")
	loader, err := NewLoader(rc, nil)
	require.NoError(t, err)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", snap.Rules.Name)
	assert.Positive(t, snap.Dictionary.Len())

	clf, err := LoadClassifier(filepath.Join("..", "..", "configs", "models", "router-classifier.json"))
	require.NoError(t, err)
	assert.NotNil(t, clf)
}
