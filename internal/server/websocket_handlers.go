package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketDecodeRequest is the JSON form of a websocket decode request.
// Binary frames carry the raw image instead and use no overrides.
type WebSocketDecodeRequest struct {
	Image   []byte   `json:"image"` // base64 in JSON
	Step    *float64 `json:"step,omitempty"`
	Fill    string   `json:"fill,omitempty"`
	Formats []string `json:"formats,omitempty"`
}

// WebSocketDecodeResponse answers one decode request.
type WebSocketDecodeResponse struct {
	Type      string                  `json:"type"`
	RequestID string                  `json:"request_id"`
	Status    string                  `json:"status"` // found, not_found, error
	Barcodes  []pipeline.DecodeResult `json:"barcodes,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Code      int                     `json:"code,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// decodeWebSocketHandler serves a long-lived decode session: every frame
// is one image, answered in order.
func (s *Server) decodeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established",
		"remote_addr", r.RemoteAddr, "request_id", requestIDFrom(r.Context()))
	s.handleWebSocketConnection(r.Context(), conn, getClientIP(r))
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, client string) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if s.rateLimiter != nil {
			if err := s.rateLimiter.Allow(client); err != nil {
				rateLimitHits.Inc()
				s.sendWebSocketResponse(conn, errorResponse(uuid.NewString(), http.StatusTooManyRequests, err))
				continue
			}
		}

		var resp WebSocketDecodeResponse
		switch messageType {
		case websocket.BinaryMessage:
			resp = s.decodeWebSocketImage(ctx, data, decodeOptions{})
		case websocket.TextMessage:
			resp = s.handleWebSocketMessage(ctx, data)
		default:
			continue
		}
		s.sendWebSocketResponse(conn, resp)
	}
}

// handleWebSocketMessage decodes a JSON request frame.
func (s *Server) handleWebSocketMessage(ctx context.Context, data []byte) WebSocketDecodeResponse {
	var req WebSocketDecodeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(uuid.NewString(), http.StatusBadRequest,
			fmt.Errorf("failed to parse request: %w", err))
	}

	// Reuse query parsing so HTTP and websocket accept the same values.
	q := url.Values{}
	if req.Step != nil {
		q.Set("step", strconv.FormatFloat(*req.Step, 'f', -1, 64))
	}
	q.Set("fill", req.Fill)
	q.Set("formats", strings.Join(req.Formats, ","))
	opts, err := parseDecodeOptions(q, nil)
	if err != nil {
		return errorResponse(uuid.NewString(), http.StatusBadRequest, err)
	}
	return s.decodeWebSocketImage(ctx, req.Image, opts)
}

func (s *Server) decodeWebSocketImage(ctx context.Context, data []byte, opts decodeOptions) WebSocketDecodeResponse {
	id := uuid.NewString()
	if len(data) == 0 {
		decodeRequestsTotal.WithLabelValues("websocket", "invalid").Inc()
		return errorResponse(id, http.StatusBadRequest, fmt.Errorf("no image data provided"))
	}
	if int64(len(data)) > s.maxUploadMB*1024*1024 {
		decodeRequestsTotal.WithLabelValues("websocket", "invalid").Inc()
		return errorResponse(id, http.StatusRequestEntityTooLarge,
			fmt.Errorf("image exceeds %d MB", s.maxUploadMB))
	}
	err := s.check(opts)
	var ov pipeline.Overrides
	if err == nil {
		ov, err = opts.overrides()
	}
	if err != nil {
		decodeRequestsTotal.WithLabelValues("websocket", "invalid").Inc()
		return errorResponse(id, http.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.RunWith(ctx, data, ov)
	decodeDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	if err != nil {
		status, _ := classifyError(err)
		decodeRequestsTotal.WithLabelValues("websocket", outcomeFor(status)).Inc()
		return errorResponse(id, status, err)
	}
	observeResult(res)

	if res.Empty() {
		if res.Incomplete {
			decodeRequestsTotal.WithLabelValues("websocket", "timeout").Inc()
			return errorResponse(id, http.StatusGatewayTimeout, context.DeadlineExceeded)
		}
		decodeRequestsTotal.WithLabelValues("websocket", "none").Inc()
		return WebSocketDecodeResponse{Type: "result", RequestID: id, Status: "not_found", Message: NoBarcodesMessage}
	}
	decodeRequestsTotal.WithLabelValues("websocket", "found").Inc()
	return WebSocketDecodeResponse{Type: "result", RequestID: id, Status: "found", Barcodes: res.Results}
}

func errorResponse(id string, code int, err error) WebSocketDecodeResponse {
	return WebSocketDecodeResponse{Type: "result", RequestID: id, Status: "error", Error: err.Error(), Code: code}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketDecodeResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
