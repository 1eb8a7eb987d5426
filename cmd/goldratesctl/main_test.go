package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/scheduler"
	"github.com/tinytelemetry/goldrates/internal/socketrpc"
)

type stubClient struct {
	widgets   []model.WidgetStatus
	refreshed []model.InstanceID
}

func (s *stubClient) Refresh(id model.InstanceID) error {
	for _, w := range s.widgets {
		if w.ID == id {
			s.refreshed = append(s.refreshed, id)
			return nil
		}
	}
	return fmt.Errorf("refresh %q: %w", id, scheduler.ErrUnknownInstance)
}

func (s *stubClient) ListWidgets() ([]model.WidgetStatus, error) { return s.widgets, nil }

func (s *stubClient) GetWidget(id model.InstanceID) (model.WidgetStatus, error) {
	for _, w := range s.widgets {
		if w.ID == id {
			return w, nil
		}
	}
	return model.WidgetStatus{}, scheduler.ErrUnknownInstance
}

func (s *stubClient) Health() (socketrpc.Health, error) {
	return socketrpc.Health{Status: "ok", Uptime: "1m0s", Widgets: len(s.widgets)}, nil
}

func newStub() *stubClient {
	return &stubClient{widgets: []model.WidgetStatus{
		{ID: "main", Phase: model.PhaseIdle, GoldSell: "72,450", SilverSell: "88,120",
			LastSuccessAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{ID: "side", Phase: model.PhaseLoading, ConsecutiveFailures: 2},
	}}
}

func TestListText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(&out, newStub(), "text", []string{"list"}))

	text := out.String()
	assert.Contains(t, text, "PHASE")
	assert.Contains(t, text, "72,450")
	assert.Contains(t, text, "loading")
	assert.Contains(t, text, model.Placeholder)
}

func TestListJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(&out, newStub(), "json", []string{"list"}))

	var got []model.WidgetStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, model.PhaseLoading, got[1].Phase)
}

func TestGetYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(&out, newStub(), "yaml", []string{"get", "main"}))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0]["id"])
	assert.Equal(t, "idle", got[0]["phase"])
}

func TestRefresh(t *testing.T) {
	stub := newStub()
	var out bytes.Buffer

	require.NoError(t, execute(&out, stub, "text", []string{"refresh", "main", "side"}))
	assert.Equal(t, []model.InstanceID{"main", "side"}, stub.refreshed)
	assert.Equal(t, "refreshing main\nrefreshing side\n", out.String())

	err := execute(&out, stub, "text", []string{"refresh", "gone"})
	assert.EqualError(t, err, `widget "gone" is not placed`)
}

func TestCommandErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, execute(&out, newStub(), "text", []string{"refresh"}))
	assert.Error(t, execute(&out, newStub(), "text", []string{"get"}))
	assert.Error(t, execute(&out, newStub(), "text", []string{"bogus"}))
	assert.Error(t, execute(&out, newStub(), "xml", []string{"list"}))
}

func TestHealthText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(&out, newStub(), "", []string{"health"}))
	assert.Equal(t, "status:  ok\nuptime:  1m0s\nwidgets: 2\n", out.String())
}

func TestLoadCLIConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("socket-path: ~/gr.sock\noutput: json\n"), 0o644))

	cfg, err := loadCLIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "gr.sock"), cfg.SocketPath)
	assert.Equal(t, "json", cfg.Output)
}
