package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAPI struct {
	widgets   map[model.InstanceID]model.WidgetStatus
	refreshed []model.InstanceID
}

func (s *stubAPI) Status(id model.InstanceID) (model.WidgetStatus, bool) {
	st, ok := s.widgets[id]
	return st, ok
}

func (s *stubAPI) List() []model.WidgetStatus {
	out := make([]model.WidgetStatus, 0, len(s.widgets))
	for _, st := range s.widgets {
		out = append(out, st)
	}
	return out
}

func (s *stubAPI) OnManualRefresh(id model.InstanceID) error {
	if _, ok := s.widgets[id]; !ok {
		return fmt.Errorf("refresh %q: %w", id, scheduler.ErrUnknownInstance)
	}
	s.refreshed = append(s.refreshed, id)
	return nil
}

func newTestServer(t *testing.T) (*stubAPI, http.Handler) {
	t.Helper()
	api := &stubAPI{widgets: map[model.InstanceID]model.WidgetStatus{
		"main": {ID: "main", Phase: model.PhaseIdle, GoldSell: "6200", SilverSell: "78000"},
	}}
	return api, NewServer("", api, nil).Handler()
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w := serve(h, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["widgets"])
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, h := newTestServer(t)

	w := serve(h, http.MethodPost, "/api/health")
	// Gin returns 404 unless HandleMethodNotAllowed is enabled.
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestListWidgets(t *testing.T) {
	_, h := newTestServer(t)

	w := serve(h, http.MethodGet, "/api/widgets")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Widgets []struct {
			ID       string `json:"id"`
			Phase    string `json:"phase"`
			GoldSell string `json:"gold_sell"`
		} `json:"widgets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Widgets, 1)
	assert.Equal(t, "main", body.Widgets[0].ID)
	assert.Equal(t, "idle", body.Widgets[0].Phase)
	assert.Equal(t, "6200", body.Widgets[0].GoldSell)
}

func TestGetWidget(t *testing.T) {
	_, h := newTestServer(t)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/widgets/main").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/widgets/ghost").Code)
}

func TestRefreshWidget(t *testing.T) {
	api, h := newTestServer(t)

	w := serve(h, http.MethodPost, "/api/widgets/main/refresh")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []model.InstanceID{"main"}, api.refreshed)

	w = serve(h, http.MethodPost, "/api/widgets/ghost/refresh")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, api.refreshed, 1)
}

func TestGinRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := serve(r, http.MethodGet, "/panic")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic recovery status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
