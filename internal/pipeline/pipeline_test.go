package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/logger"
	"query-router/internal/common/validation"
	"query-router/internal/models"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/snapshot"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(fixedClock), WithLogger(logger.NewTestLogger(t))}, opts...)
	return New(snapshot.NewStaticStore(snapshot.Default()), opts...)
}

func codes(errs []models.ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestProcess_Scenarios(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		module          models.Module
		actionType      string
		contractNumber  *string
		errorCodes      []string
		messageContains string
		filter          *models.Entity
	}{
		{
			name:           "contract number lookup",
			query:          "show contract 123456",
			module:         models.ModuleContract,
			actionType:     "contracts_by_contractNumber",
			contractNumber: strPtr("123456"),
			errorCodes:     []string{},
		},
		{
			name:            "short contract number glued to keyword",
			query:           "contract123;parts456",
			module:          models.ModuleError,
			actionType:      models.ActionError,
			errorCodes:      []string{models.CodeInvalidHeader, models.CodeInvalidHeader},
			messageContains: "3 digits",
		},
		{
			name:           "parts creation is refused",
			query:          "create parts for contract 123456",
			module:         models.ModulePartsCreateError,
			actionType:     intent.ActionPartsCreateError,
			contractNumber: strPtr("123456"),
			errorCodes:     []string{models.CodeBusinessRuleViolation},
		},
		{
			name:       "year filter",
			query:      "contracts created in 2024",
			module:     models.ModuleContract,
			actionType: "contracts_by_date",
			errorCodes: []string{},
			filter: &models.Entity{
				Attribute: models.AttrCreatedDate,
				Operator:  models.OperatorInYear,
				Value:     "2024",
				Source:    models.SourceFilter,
			},
		},
		{
			name:       "empty query",
			query:      "",
			module:     models.ModuleError,
			actionType: models.ActionError,
			errorCodes: []string{models.CodeMissingHeader},
		},
	}

	p := newTestPipeline(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Process(tt.query)
			require.NotNil(t, resp)

			assert.Equal(t, tt.module, resp.QueryMetadata.QueryType)
			assert.Equal(t, tt.actionType, resp.QueryMetadata.ActionType)
			assert.Equal(t, tt.contractNumber, resp.Header.ContractNumber)
			assert.Equal(t, tt.errorCodes, codes(resp.Errors))
			if tt.messageContains != "" {
				require.NotEmpty(t, resp.Errors)
				assert.Contains(t, resp.Errors[0].Message, tt.messageContains)
			}
			if tt.filter != nil {
				assert.Contains(t, resp.Entities, *tt.filter)
			}
			if tt.module == models.ModuleError {
				assert.True(t, resp.HasBlocker())
				assert.Empty(t, resp.DisplayEntities)
			} else {
				assert.NotEmpty(t, resp.DisplayEntities)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestProcess_SpellingFeedsExtraction(t *testing.T) {
	snap := snapshot.Default()
	src := snapshot.MapSource{
		snapshot.KeyPartsKeywords:  {"part", "parts"},
		snapshot.KeyCreateKeywords: {"create"},
		snapshot.KeySpelling:       {"contarct=contract"},
	}
	store := snapshot.NewStore(snapshot.Loader{Source: src, Normalize: snap.Normalize}, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	p := New(store, WithClock(fixedClock), WithDiagnostics(true))
	resp := p.Process("Show CONTARCT 123456")

	assert.Equal(t, models.ModuleContract, resp.QueryMetadata.QueryType)
	require.NotNil(t, resp.Header.ContractNumber)
	assert.Equal(t, "123456", *resp.Header.ContractNumber)

	require.NotNil(t, resp.Diagnostics)
	assert.Equal(t, "Show CONTARCT 123456", resp.Diagnostics.Query.Raw)
	assert.Equal(t, "show contarct 123456", resp.Diagnostics.Query.Normalized)
	assert.Equal(t, "show contract 123456", resp.Diagnostics.Query.Corrected)
	assert.Equal(t, []models.Correction{{Original: "contarct", Corrected: "contract"}}, resp.Diagnostics.Corrections)
	assert.Equal(t, store.Load().Version, resp.Diagnostics.SnapshotVersion)
}

func TestProcess_ProcessingTime(t *testing.T) {
	var calls int64
	clock := func() time.Time {
		n := atomic.AddInt64(&calls, 1)
		return fixedTime.Add(time.Duration(n) * 15 * time.Millisecond)
	}
	p := New(snapshot.NewStaticStore(snapshot.Default()), WithClock(clock))

	resp := p.Process("show contract 123456")
	assert.Equal(t, int64(15), resp.QueryMetadata.ProcessingTimeMs)
}

func TestProcess_NoSnapshot(t *testing.T) {
	store := snapshot.NewStore(snapshot.Loader{}, nil)
	p := New(store, WithClock(fixedClock))

	resp := p.Process("show contract 123456")
	assert.Equal(t, models.ModuleError, resp.QueryMetadata.QueryType)
	assert.Equal(t, []string{models.CodeProcessingError}, codes(resp.Errors))
	assert.Equal(t, models.SeverityBlocker, resp.Errors[0].Severity)
	assert.Empty(t, resp.Entities)
	assert.Empty(t, resp.DisplayEntities)
}

func TestProcess_RecoversFromCorruptSnapshot(t *testing.T) {
	p := New(snapshot.NewStaticStore(&snapshot.Snapshot{}), WithClock(fixedClock), WithLogger(logger.NewTestLogger(t)))

	resp := p.Process("show contract 123456")
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, models.CodeProcessingError, resp.Errors[0].Code)
	assert.Contains(t, resp.Errors[0].Message, "Processing failed")
	assert.Equal(t, models.ModuleError, resp.QueryMetadata.QueryType)
}

func TestProcess_Deterministic(t *testing.T) {
	p := newTestPipeline(t)
	queries := []string{
		"show contract 123456",
		"parts AB123 and XY-9 for customer 4455",
		"contracts for customer acme corp expiring after 2025",
		"only show price and lead time for part AB123",
	}
	for _, q := range queries {
		first, err := json.Marshal(p.Process(q))
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := json.Marshal(p.Process(q))
			require.NoError(t, err)
			assert.JSONEq(t, string(first), string(again), q)
		}
	}
}

func TestProcess_JSONRoundTrip(t *testing.T) {
	p := newTestPipeline(t, WithDiagnostics(true))
	resp := p.Process("contracts by jsmith since 2022 status active")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *resp, decoded)
}

func TestProcess_ResponsesMatchSchema(t *testing.T) {
	queries := []string{
		"",
		"   ",
		"show contract 123456",
		"contract123;parts456",
		"create parts for contract 123456",
		"contracts created in 2024",
		"how do I add a user",
		"parts created last year for contract 987654",
		"contracts between 2021 and 2023 for customer 12345",
		"???",
	}

	for _, diagnostics := range []bool{false, true} {
		p := newTestPipeline(t, WithDiagnostics(diagnostics))
		for _, q := range queries {
			data, err := json.Marshal(p.Process(q))
			require.NoError(t, err)
			result, err := validation.ValidateResponseJSON(data)
			require.NoError(t, err)
			assert.True(t, result.Valid, "%q: %v", q, result.GetErrorMessages())
		}
	}
}

func TestProcess_Observers(t *testing.T) {
	var mu sync.Mutex
	var seen []models.Module
	observer := func(resp *models.Response, _ time.Duration, _ int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, resp.QueryMetadata.QueryType)
	}

	p := New(snapshot.NewStore(snapshot.Loader{}, nil), WithClock(fixedClock), WithObserver(observer), WithObserver(MetricsObserver))
	p.Process("show contract 123456")

	p = newTestPipeline(t, WithObserver(observer))
	p.Process("show contract 123456")

	assert.Equal(t, []models.Module{models.ModuleError, models.ModuleContract}, seen)
}

func TestProcess_ConcurrentWithReload(t *testing.T) {
	src := snapshot.MapSource{
		snapshot.KeyPartsKeywords:  {"part", "parts"},
		snapshot.KeyCreateKeywords: {"create"},
		snapshot.KeySpelling:       {"contarct=contract"},
	}
	store := snapshot.NewStore(snapshot.Loader{Source: src}, nil)

	// versions records, per snapshot version, whether it corrects the typo.
	var versions sync.Map
	store.OnReload(func(snap *snapshot.Snapshot, err error, _ time.Duration) {
		if err == nil {
			_, fixes := snap.Dictionary.Lookup("contarct")
			versions.Store(snap.Version, fixes)
		}
	})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	p := New(store, WithClock(fixedClock), WithDiagnostics(true))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp := p.Process("show contarct 123456")
				fixes, ok := versions.Load(resp.Diagnostics.SnapshotVersion)
				if !ok {
					// swapped in, hook not yet run
					continue
				}
				corrected := len(resp.Diagnostics.Corrections) == 1
				if corrected != fixes.(bool) {
					t.Errorf("response mixes snapshots: corrected=%v, snapshot fixes=%v", corrected, fixes)
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			src[snapshot.KeySpelling] = []string{"prts=parts"}
		} else {
			src[snapshot.KeySpelling] = []string{"contarct=contract"}
		}
		_, err := store.Reload(context.Background())
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}
