package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huepresence/internal/config"
	"github.com/dokzlo13/huepresence/internal/ledger"
)

// fakeBridge is a minimal in-memory v1 sensors API
type fakeBridge struct {
	mu       sync.Mutex
	sensors  map[string]map[string]any
	created  int
	linkDown bool
}

func (b *fakeBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api":
		if b.linkDown {
			io.WriteString(w, `[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`)
			return
		}
		io.WriteString(w, `[{"success":{"username":"u1","clientkey":"k1"}}]`)

	case r.Method == http.MethodGet && r.URL.Path == "/api/u1/sensors":
		json.NewEncoder(w).Encode(b.sensors)

	case r.Method == http.MethodPost && r.URL.Path == "/api/u1/sensors":
		var sensor map[string]any
		json.NewDecoder(r.Body).Decode(&sensor)
		b.created++
		id := fmt.Sprintf("%d", 100+b.created)
		b.sensors[id] = sensor
		fmt.Fprintf(w, `[{"success":{"id":"%s"}}]`, id)

	case r.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/u1/sensors/"), "/state")
		var state map[string]any
		json.NewDecoder(r.Body).Decode(&state)
		b.sensors[id]["state"] = state
		fmt.Fprintf(w, `[{"success":{"/sensors/%s/state/flag":%t}}]`, id, state["flag"])

	default:
		http.NotFound(w, r)
	}
}

func newTestApp(t *testing.T, bridge *fakeBridge, mutate func(*config.Config)) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv(config.CredentialsEnv, "")

	srv := httptest.NewServer(bridge)
	t.Cleanup(srv.Close)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Hue.Bridge = srv.URL
	cfg.Database.Path = filepath.Join(t.TempDir(), "presence.sqlite")
	if mutate != nil {
		mutate(cfg)
	}

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	var stdout, stderr bytes.Buffer
	a.SetOutput(&stdout, &stderr)
	return a, &stdout, &stderr
}

func TestRun_FirstRunCreatesUserAndSensor(t *testing.T) {
	bridge := &fakeBridge{sensors: map[string]map[string]any{}}
	a, stdout, _ := newTestApp(t, bridge, nil)

	require.NoError(t, a.Run(context.Background(), "desk", true))

	assert.Contains(t, stdout.String(), "HUE_PRESENCE_CREDENTIALS=\"u1:k1\"\n")
	assert.Contains(t, stdout.String(), "Created sensor desk\n")
	assert.Equal(t, 1, bridge.created)
	assert.Equal(t, map[string]any{"flag": true}, bridge.sensors["101"]["state"])

	entries, err := a.History("desk", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	types := []ledger.EventType{entries[0].EventType, entries[1].EventType, entries[2].EventType}
	assert.ElementsMatch(t, []ledger.EventType{
		ledger.EventUserCreated, ledger.EventSensorCreated, ledger.EventPresenceSet,
	}, types)
	for _, e := range entries {
		assert.NotContains(t, fmt.Sprint(e.Payload), "k1")
	}
}

func TestRun_ExistingSensorWithCredentials(t *testing.T) {
	bridge := &fakeBridge{sensors: map[string]map[string]any{
		"4": {"name": "desk", "type": "CLIPGenericFlag", "state": map[string]any{"flag": true}},
	}}
	a, stdout, _ := newTestApp(t, bridge, func(cfg *config.Config) {
		cfg.Hue.Credentials = "u1:k1"
	})

	require.NoError(t, a.Run(context.Background(), "desk", false))

	assert.Empty(t, stdout.String())
	assert.Zero(t, bridge.created)
	assert.Equal(t, map[string]any{"flag": false}, bridge.sensors["4"]["state"])
}

func TestRun_LinkButtonNotPressed(t *testing.T) {
	bridge := &fakeBridge{sensors: map[string]map[string]any{}, linkDown: true}
	a, _, stderr := newTestApp(t, bridge, nil)

	err := a.Run(context.Background(), "desk", true)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Press the Link button on ")

	entries, err := a.History("desk", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EventPresenceFailed, entries[0].EventType)
}

func TestSensorName_Precedence(t *testing.T) {
	script := filepath.Join(t.TempDir(), "hook.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function sensor_name(hostname, value)
	if hostname == "scripted" then
		return "from-script"
	end
end
`), 0o600))

	a, _, _ := newTestApp(t, &fakeBridge{}, func(cfg *config.Config) {
		cfg.Presence.Script = script
		cfg.Presence.Name = "from-config"
	})

	name, err := a.SensorName("scripted", true)
	require.NoError(t, err)
	assert.Equal(t, "from-script", name)

	name, err = a.SensorName("other", true)
	require.NoError(t, err)
	assert.Equal(t, "from-config", name)
}

func TestHistory_Disabled(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeBridge{}, func(cfg *config.Config) {
		cfg.Database.Path = ""
	})

	_, err := a.History("desk", 5)
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}
