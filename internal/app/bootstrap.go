// Package app assembles the routing pipeline from configuration. It is shared
// by the service binary and the command-line tools.
package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/normalize"
	"query-router/internal/pipeline/snapshot"
)

func NormalizeOptions(rc config.RouterConfig) normalize.Options {
	return normalize.Options{
		StripDisallowed:     rc.StripDisallowed,
		AllowUnicodeLetters: rc.AllowUnicodeLetters,
		ExtraAllowed:        rc.ExtraAllowed,
	}
}

// NewLoader picks the configured source. pg is only used by the postgres
// source and must be non-nil for it.
func NewLoader(rc config.RouterConfig, pg *database.PostgresClient) (snapshot.Loader, error) {
	loader := snapshot.Loader{
		RuleSet:   rc.RuleSet,
		Normalize: NormalizeOptions(rc),
	}

	switch rc.Source {
	case config.SourceFile, "":
		loader.Source = snapshot.NewFileSource(rc.ConfigDir)
	case config.SourcePostgres:
		if pg == nil {
			return snapshot.Loader{}, fmt.Errorf("postgres source requires a database connection")
		}
		src, err := snapshot.NewPostgresSource(pg, rc.ConfigTable)
		if err != nil {
			return snapshot.Loader{}, err
		}
		loader.Source = src
	default:
		return snapshot.Loader{}, fmt.Errorf("unknown router source %q", rc.Source)
	}
	return loader, nil
}

// LoadClassifier returns nil when no model path is configured.
func LoadClassifier(path string) (intent.Classifier, error) {
	if path == "" {
		return nil, nil
	}
	clf, err := intent.LoadWeightedTokenClassifierFile(path)
	if err != nil {
		return nil, err
	}
	return clf, nil
}

// ScheduleReloads reloads store on the cron schedule until ctx is done. The
// returned scheduler is already started; Stop waits for a running reload.
func ScheduleReloads(ctx context.Context, store *snapshot.Store, spec string, log logger.Logger) (*cron.Cron, error) {
	schedule, err := config.ParseSchedule(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := store.Reload(ctx); err != nil {
			log.Warn("Scheduled snapshot reload failed", map[string]interface{}{"error": err})
		}
	}))
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	log.Info("Scheduled snapshot reloads", map[string]interface{}{"schedule": spec})
	return c, nil
}
