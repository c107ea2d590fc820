package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/config"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	mr := miniredis.RunT(t)
	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	type payload struct {
		Module string `json:"module"`
	}

	require.NoError(t, client.SetJSON(ctx, "route:v1:abc", payload{Module: "CONTRACT"}, time.Minute))
	assert.True(t, mr.Exists("route:v1:abc"))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "route:v1:abc", &got))
	assert.Equal(t, "CONTRACT", got.Module)

	mr.FastForward(2 * time.Minute)
	err := client.GetJSON(ctx, "route:v1:abc", &got)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisClient_CorruptValue(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var dst map[string]interface{}
	err := client.GetJSON(context.Background(), "bad", &dst)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisClient_Ping(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	client := NewPostgresFromDB(db)
	mock.ExpectPing()
	require.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}
