package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMustLoadPathDefaults(t *testing.T) {
	cfg := MustLoadPath(writeConfig(t, "env: dev\n"))

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Rooms.DefaultDuration)
	assert.Equal(t, 10, cfg.Rooms.DefaultCapacity)
	assert.Equal(t, LateJoinExtend, cfg.Rooms.LateJoinPolicy)
	assert.Equal(t, 120*time.Minute, cfg.Rooms.LateJoinGrace)
	assert.Equal(t, 2*time.Second, cfg.Rooms.StoreRetryBudget)
	assert.Equal(t, time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 2*time.Second, cfg.Signaling.SendTimeout)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.WebRTC.STUNServers)
	assert.Equal(t, "meetings", cfg.NATS.SubjectPrefix)
}

func TestMustLoadPathOverrides(t *testing.T) {
	cfg := MustLoadPath(writeConfig(t, `
env: prod
http:
  address: ":9090"
rooms:
  default_capacity: 4
  late_join_policy: reject
  late_join_grace: 30m
sweeper:
  interval: 30s
signaling:
  reconnect_grace: 5s
webrtc:
  stun_servers: ["stun:example.org:3478"]
  turn_servers: ["turn:example.org:3478"]
`))

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 4, cfg.Rooms.DefaultCapacity)
	assert.Equal(t, LateJoinReject, cfg.Rooms.LateJoinPolicy)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.LateJoinGrace)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval)
	assert.Equal(t, 5*time.Second, cfg.Signaling.ReconnectGrace)
	assert.Equal(t, []string{"stun:example.org:3478"}, cfg.WebRTC.STUNServers)
	assert.Equal(t, []string{"turn:example.org:3478"}, cfg.WebRTC.TURNServers)
}

func TestMustLoadPathMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
