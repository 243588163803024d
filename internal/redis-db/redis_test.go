package redis_db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestParseRedisURL_PlainAddress(t *testing.T) {
	opts, err := ParseRedisURL("redis:6379", false)
	assert.NoError(t, err)
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Empty(t, opts.Password)
}

func TestParseRedisURL_URLWithPassword(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6379/1", false)
	assert.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)
}

func TestParseRedisURL_Invalid(t *testing.T) {
	_, err := ParseRedisURL("redis://bad url with spaces", false)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(mr.Addr(), false)
	assert.NoError(t, err)
	assert.NotNil(t, client.Client())
	assert.NotNil(t, client.MakeRedisClient())
}

func TestNewRedisClient_EmptyAddress(t *testing.T) {
	_, err := NewRedisClient("", false)
	assert.Error(t, err)
}
