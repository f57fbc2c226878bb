package testbackend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestRejectsUnauthenticatedCalls(t *testing.T) {
	b := New(logger.NewLogger("ERROR", "backend-test"))

	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/account/balance", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := b.AddUser("a@b.co", "pw")
	req := httptest.NewRequest(http.MethodGet, "/account/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, b.CallCount(http.MethodGet, "/account/balance"))
}

func TestLiveSwitchNeedsKraken(t *testing.T) {
	b := New(logger.NewLogger("ERROR", "backend-test"))
	token := b.AddUser("a@b.co", "pw")

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/account/trading-mode", strings.NewReader(`{"mode":"LIVE"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		b.Handler().ServeHTTP(w, req)
		return w
	}

	w := post()
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"PAPER"`)

	b.KrakenConnected = true
	w = post()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TradingModeLive, b.Mode())
}

func TestStreamAcksAndPlaysTicks(t *testing.T) {
	b := New(logger.NewLogger("ERROR", "backend-test"))
	b.Ticks = []models.MTick{{Symbol: "BTC-USD", Last: f(100)}, {Symbol: "BTC-USD", Last: f(105), Change24h: f(1.2)}}

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/prices", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","symbols":["BTC-USD"]}`)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var types []string
	for i := 0; i < 3; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		types = append(types, msg.Type)
	}
	assert.Equal(t, []string{"subscribed", "tick", "tick"}, types)
	assert.Equal(t, [][]string{{"BTC-USD"}}, b.Subscriptions())
}
