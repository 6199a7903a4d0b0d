package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"SetupScan/internal/usecase"
	xhttp "SetupScan/pkg/http"
	xlogger "SetupScan/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScanWSHandler streams scan progress over a WebSocket with the same event shapes as the SSE route.
type ScanWSHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ScanService
}

func NewScanWSHandler(logger *xlogger.Logger, svc *usecase.ScanService) *ScanWSHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ScanWSHandler{logger: logger, svc: svc}
}

func (h *ScanWSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/scan", h.Scan)
}

// Scan upgrades the connection, starts a scan and forwards its events as JSON text frames.
// Filter errors and a running scan are reported as a single error frame before closing.
func (h *ScanWSHandler) Scan(c echo.Context) error {
	o, parseErr := parseOverrides(c.QueryParam("filters"))

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()
	sink := &wsSink{conn: conn}

	if parseErr != nil {
		_ = sink.Send(xhttp.ErrorBody{Error: overridesError(parseErr)})
		return nil
	}
	if verr := xhttp.ValidateStruct(c.Request().Context(), &o); verr != nil {
		_ = sink.Send(xhttp.ErrorBody{Error: validationMessage(verr)})
		return nil
	}
	if err := h.svc.Start(o); err != nil {
		_ = sink.Send(xhttp.ErrorBody{Error: err.Error()})
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		// reads only surface the close frame or a broken connection
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.svc.Stream(ctx, sink); err != nil {
		h.logger.Debug("websocket subscriber left", xlogger.Error(err))
		return nil
	}
	_ = sink.close()
	return nil
}

type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

func (s *wsSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished")
	return s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
