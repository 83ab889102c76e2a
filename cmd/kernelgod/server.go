package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/kernelgo"
	"github.com/hupe1980/kernelgo/codec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxMessageBytes bounds one websocket frame. create carries whole arrays.
const maxMessageBytes = 256 << 20

// Server exposes an engine over websockets.
type Server struct {
	ctx      context.Context
	handler  *handler
	logger   *kernelgo.Logger
	upgrader websocket.Upgrader
	codec    codec.Codec
	gatherer prometheus.Gatherer
}

// NewServer creates a server. Connections are closed when ctx is done.
func NewServer(ctx context.Context, e *kernelgo.Engine, logger *kernelgo.Logger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		ctx:      ctx,
		handler:  newHandler(e, codec.Default),
		logger:   logger,
		codec:    codec.Default,
		gatherer: gatherer,
	}
}

// Routes returns the HTTP handler: /ws, /metrics and /healthz.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(messageType, data)
	}

	stop := context.AfterFunc(s.ctx, func() {
		_ = write(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
	})
	defer stop()

	conn.SetReadLimit(maxMessageBytes)
	logger := s.logger.WithRequestID(r.RemoteAddr)
	logger.Debug("client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", "error", err)
			}
			break
		}

		reply := s.handler.HandleRaw(s.ctx, data)
		out, err := s.codec.Marshal(reply)
		if err != nil {
			logger.Error("encode reply failed", "error", err)
			out, _ = s.codec.Marshal(failure(reply.ID, err))
		}
		if err := write(websocket.TextMessage, out); err != nil {
			logger.Warn("websocket write failed", "error", err)
			break
		}
	}
	logger.Debug("client disconnected")
}
