package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/analysis"
)

// Source is the session state the feed serves. *ambient.Session implements
// it.
type Source interface {
	Snapshot() ambient.Snapshot
	Status() ambient.Status
	PitchClasses() analysis.PitchClassDistribution
	Spectrum() analysis.Spectrum
	Trigger() error
}

var _ Source = (*ambient.Session)(nil)

// Request names for WebSocket pulls. Any other text is treated as
// RequestVoices.
const (
	RequestVoices       = "voices"
	RequestStatus       = "status"
	RequestPitchClasses = "pitch-classes"
	RequestSpectrum     = "spectrum"
)

// StartResponse is the reply to POST /start.
type StartResponse struct {
	Status      ambient.Status `json:"status" msgpack:"status"`
	DeviceError string         `json:"device_error,omitempty" msgpack:"device_error,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins restricts browser origins for CORS and WebSocket
// upgrades. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// Server serves snapshots over HTTP and WebSocket. Every response is
// produced on request; the server never pushes.
type Server struct {
	src      Source
	logger   *slog.Logger
	origins  []string
	router   *mux.Router
	upgrader websocket.Upgrader
}

// NewServer creates a feed server for src.
func NewServer(src Source, opts ...Option) *Server {
	s := &Server{
		src:     src,
		logger:  slog.Default(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/voices", s.handleVoices).Methods(http.MethodGet)
	r.HandleFunc("/voices/ws", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/pitch-classes", s.handlePitchClasses).Methods(http.MethodGet)
	r.HandleFunc("/spectrum", s.handleSpectrum).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	s.router = r
	return s
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("feed listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("feed: serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("feed: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("feed: serve: %w", err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.src.Snapshot())
}

func (s *Server) handlePitchClasses(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.src.PitchClasses())
}

func (s *Server) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.src.Spectrum())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.src.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var resp StartResponse
	if err := s.src.Trigger(); err != nil {
		resp.DeviceError = err.Error()
	}
	resp.Status = s.src.Status()
	s.reply(w, r, resp)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, v any) {
	codec, err := requestCodec(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := codec.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "path", r.URL.Path, "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType())
	w.Write(data)
}

// handleStream answers each client message on the socket with one payload.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	codec, err := requestCodec(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	msgType := websocket.TextMessage
	if codec == CodecMsgpack {
		msgType = websocket.BinaryMessage
	}
	s.logger.Debug("feed client connected", "remote", r.RemoteAddr, "codec", codec)
	for {
		_, req, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("feed client read", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		var v any
		switch string(req) {
		case RequestStatus:
			v = s.src.Status()
		case RequestPitchClasses:
			v = s.src.PitchClasses()
		case RequestSpectrum:
			v = s.src.Spectrum()
		default:
			v = s.src.Snapshot()
		}
		data, err := codec.Marshal(v)
		if err != nil {
			s.logger.Error("encode snapshot", "error", err)
			return
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}
