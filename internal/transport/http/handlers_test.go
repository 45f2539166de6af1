package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkeye/voipcore/internal/app/orch"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	muted map[string]bool
}

func (f *fakeHost) Stats() orch.Stats {
	return orch.Stats{Sessions: len(f.muted), MaxClients: 32}
}

func (f *fakeHost) ChannelTree() core.ChannelSnapshot {
	return core.ChannelSnapshot{Channel: domain.Channel{ID: 0, Name: "Root"}}
}

func (f *fakeHost) IsPlayerMuted(prefix string) (bool, bool) {
	m, ok := f.muted[prefix]
	return m, ok
}

func (f *fakeHost) SetPlayerMuted(prefix string, muted bool) error {
	if _, ok := f.muted[prefix]; !ok {
		return orch.ErrUnknownPlayer
	}
	f.muted[prefix] = muted
	return nil
}

func newRouter(h Host) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", Healthz)
	NewHandlers(h).Register(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(newRouter(&fakeHost{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatsAndChannels(t *testing.T) {
	r := newRouter(&fakeHost{muted: map[string]bool{"[1]": false}})

	w := do(r, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st orch.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, 32, st.MaxClients)

	w = do(r, http.MethodGet, "/api/channels", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Root"`)
}

func TestMute(t *testing.T) {
	host := &fakeHost{muted: map[string]bool{"[7]": false}}
	r := newRouter(host)

	w := do(r, http.MethodPut, "/api/players/%5B7%5D/mute", `{"muted":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, host.muted["[7]"])

	w = do(r, http.MethodGet, "/api/players/%5B7%5D/mute", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp MuteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Muted)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/players/nobody/mute", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/players/nobody/mute", `{"muted":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/players/%5B7%5D/mute", `{}`).Code)
}
