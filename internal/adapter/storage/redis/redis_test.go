package redis

import (
	"context"
	"strconv"
	"testing"

	"civic-ledger/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}
	s.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sup:nonce:engine:abc", key("nonce", "engine", "abc"))
	assert.Equal(t, "sup:idem", key("idem"))
}

func mustPort(t *testing.T, s *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	return port
}
