package api

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialScan(t *testing.T, base, filters string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(base, "http") + "/ws/scan"
	if filters != "" {
		u += "?filters=" + url.QueryEscape(filters)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev map[string]interface{}
		if err := conn.ReadJSON(&ev); err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func TestWSScanStreamsEvents(t *testing.T) {
	srv := newTestServer(t, newTestService(t), ProbeRate{Capacity: 5, RefillPerSec: 1})
	conn := dialScan(t, srv.URL, `{"min_confidence":70}`)

	frames := readFrames(t, conn)
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, "Starting scan...", frames[0]["message"])

	final := frames[len(frames)-1]
	assert.Equal(t, true, final["success"])
	assert.Len(t, final["results"], 1)
}

func TestWSScanReportsBadFilters(t *testing.T) {
	srv := newTestServer(t, newTestService(t), ProbeRate{Capacity: 5, RefillPerSec: 1})
	conn := dialScan(t, srv.URL, "{oops")

	frames := readFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, "Invalid filters format", frames[0]["error"])
}
