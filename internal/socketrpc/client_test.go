package socketrpc_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/scheduler"
	"github.com/tinytelemetry/goldrates/internal/socketrpc"
)

type fakeAPI struct {
	refreshed chan model.InstanceID
}

func (a *fakeAPI) Status(id model.InstanceID) (model.WidgetStatus, bool) {
	if id != "main" {
		return model.WidgetStatus{}, false
	}
	return model.WidgetStatus{ID: "main", Phase: model.PhaseLoading, InFlight: 1}, true
}

func (a *fakeAPI) List() []model.WidgetStatus {
	st, _ := a.Status("main")
	return []model.WidgetStatus{st}
}

func (a *fakeAPI) OnManualRefresh(id model.InstanceID) error {
	if id != "main" {
		return fmt.Errorf("refresh %q: %w", id, scheduler.ErrUnknownInstance)
	}
	a.refreshed <- id
	return nil
}

func startServer(t *testing.T) (string, *fakeAPI) {
	t.Helper()
	dir, err := os.MkdirTemp("", "grs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "ctl.sock")
	api := &fakeAPI{refreshed: make(chan model.InstanceID, 4)}
	srv := socketrpc.NewServer(path, api, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return path, api
}

func TestClientRoundtrip(t *testing.T) {
	path, api := startServer(t)

	client, err := socketrpc.Dial(path)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Refresh("main"))
	assert.Equal(t, model.InstanceID("main"), <-api.refreshed)

	widgets, err := client.ListWidgets()
	require.NoError(t, err)
	require.Len(t, widgets, 1)
	assert.Equal(t, model.PhaseLoading, widgets[0].Phase)
	assert.Equal(t, 1, widgets[0].InFlight)

	st, err := client.GetWidget("main")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceID("main"), st.ID)

	h, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.Widgets)
}

func TestClientUnknownWidget(t *testing.T) {
	path, _ := startServer(t)

	client, err := socketrpc.Dial(path)
	require.NoError(t, err)
	defer client.Close()

	err = client.Refresh("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrUnknownInstance))
}

func TestSecondServerRefusesLiveSocket(t *testing.T) {
	path, _ := startServer(t)

	other := socketrpc.NewServer(path, &fakeAPI{}, nil)
	err := other.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already listening")
}

func TestServerReplacesStaleSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "grs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "ctl.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv := socketrpc.NewServer(path, &fakeAPI{}, nil)
	require.NoError(t, srv.Start())
	srv.Stop()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "socket file should be removed on stop")
}

func TestDialMissingSocket(t *testing.T) {
	_, err := socketrpc.Dial(filepath.Join(t.TempDir(), "missing.sock"))
	assert.Error(t, err)
}
