package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id string) Activity {
	return Activity{
		ID:          id,
		DisplayName: "Route User Query",
		Category:    "query",
		TaskType:    id,
		Timeout:     "10s",
	}
}

func TestLoadRegistry_MissingFileIsEmpty(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, reg.Activities)
}

func TestLoadRegistry_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := LoadRegistry(path)
	assert.Error(t, err)
}

func TestSaveRegistry_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{activity("route-user-query")}}
	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)
}

func TestUpsert(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := &ActivityRegistry{}

	assert.True(t, reg.Upsert(activity("route-user-query"), now))
	assert.Equal(t, "2024-06-01T12:00:00Z", reg.LastUpdated)

	assert.False(t, reg.Upsert(activity("route-user-query"), now.Add(time.Hour)), "identical activity")
	assert.Equal(t, "2024-06-01T12:00:00Z", reg.LastUpdated)

	changed := activity("route-user-query")
	changed.Timeout = "5s"
	assert.True(t, reg.Upsert(changed, now.Add(time.Hour)))
	require.Len(t, reg.Activities, 1)
	assert.Equal(t, "5s", reg.Activities[0].Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		wantErr    string
	}{
		{name: "valid", activities: []Activity{activity("a"), activity("b")}},
		{name: "empty", wantErr: "no activities"},
		{name: "duplicate", activities: []Activity{activity("a"), activity("a")}, wantErr: "duplicate"},
		{name: "missing id", activities: []Activity{activity("")}, wantErr: "ID"},
		{
			name: "missing category",
			activities: []Activity{func() Activity {
				a := activity("a")
				a.Category = ""
				return a
			}()},
			wantErr: "Category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ActivityRegistry{Activities: tt.activities}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
