package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MONGO_DB", "REDIS_ADDR", "REDIS_URI", "REDIS_URL", "QUESTION_CACHE_TTL", "AUDITION_GLOBAL_SECONDS", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "audition", c.MongoDB)
	assert.Equal(t, 10*time.Minute, c.QuestionCacheTTL)
	assert.Equal(t, 1800, c.GlobalSeconds)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 4, c.WorkerConcurrency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_URI", "")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("QUESTION_CACHE_TTL", "90")
	t.Setenv("SIGNED_URL_EXPIRY", "1h")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c := Load()
	assert.Equal(t, "redis://cache:6379/0", c.RedisAddr)
	assert.Equal(t, 90*time.Second, c.QuestionCacheTTL)
	assert.Equal(t, time.Hour, c.SignedURLExpiry)
	assert.True(t, c.AutoMigrate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	c := Config{GlobalSeconds: 1800, WorkerConcurrency: 1, MaxAudioBytes: 1}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_URI")
	assert.Contains(t, err.Error(), "MONGO_URI")
	assert.Contains(t, err.Error(), "GCS_BUCKET")

	c.PostgresURI = "postgres://x"
	c.MongoURI = "mongodb://x"
	c.RedisAddr = "localhost:6379"
	c.GCSBucket = "bucket"
	assert.NoError(t, c.Validate())

	c.GlobalSeconds = 0
	assert.ErrorContains(t, c.Validate(), "AUDITION_GLOBAL_SECONDS")
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	client, err = NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedis(context.Background(), mr.Addr())
	assert.Error(t, err)
}
