// Package web serves the annotated stream to browsers.
//
// The Server is a pipeline.FrameSink: every published frame is JPEG encoded
// and fanned out over /ws/frames, and the display text over /ws/text. A
// viewer stops the run with POST /api/exit.
package web

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-agecam/internal/log"
	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/hub"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

//go:embed static/index.html
var indexHTML []byte

// ErrNotOpen is returned by Publish before Open.
var ErrNotOpen = errors.New("web: server not open")

// shutdownTimeout bounds how long Close waits for open connections.
const shutdownTimeout = 2 * time.Second

// TextMessage is the JSON sent on /ws/text for every frame.
type TextMessage struct {
	Seq   uint64   `json:"seq"`
	Lines []string `json:"lines"`
}

// Status is returned by GET /api/status.
type Status struct {
	RunID         string  `json:"run_id"`
	Frames        uint64  `json:"frames"`
	LastSeq       uint64  `json:"last_seq"`
	Viewers       int     `json:"viewers"`
	ExitRequested bool    `json:"exit_requested"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Server is the web viewer sink.
type Server struct {
	app    *fiber.App
	cfg    config.Sink
	runID  string
	logger *slog.Logger

	// Hubs for websocket broadcast
	frameHub *hub.Hub
	textHub  *hub.Hub

	exit    atomic.Bool
	frames  atomic.Uint64
	lastSeq atomic.Uint64
	started time.Time

	mu        sync.Mutex
	ln        net.Listener
	open      bool
	closed    bool
	serveDone chan error
}

// NewServer creates the viewer. Routes are ready immediately; Open starts
// listening.
func NewServer(cfg config.Sink, runID string) *Server {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = config.DefaultConfig().Sink.JPEGQuality
	}

	s := &Server{
		cfg:      cfg,
		runID:    runID,
		logger:   log.With("component", "web", "run_id", runID),
		frameHub: hub.New("frames"),
		textHub:  hub.New("text"),
		started:  time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "agecam",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/exit", s.handleExit)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/frames", websocket.New(s.hubHandler(s.frameHub)))
	app.Get("/ws/text", websocket.New(s.hubHandler(s.textHub)))

	s.app = app
	return s
}

// Open binds the listen address and starts serving in the background.
func (s *Server) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}
	if s.closed {
		return fmt.Errorf("web: open after close")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	go s.frameHub.Run()
	go s.textHub.Run()

	s.ln = ln
	s.serveDone = make(chan error, 1)
	go func() {
		s.serveDone <- s.app.Listener(ln)
	}()
	s.open = true

	s.logger.Info("viewer listening", "url", "http://"+displayAddr(ln.Addr()))
	return nil
}

// Addr returns the bound address, or nil before Open.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Publish encodes f and broadcasts it with its display text. It never waits
// for viewers.
func (s *Server) Publish(f frame.Frame, text []string) error {
	s.mu.Lock()
	open := s.open && !s.closed
	s.mu.Unlock()
	if !open {
		return ErrNotOpen
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.Image, imaging.JPEG, imaging.JPEGQuality(s.cfg.JPEGQuality)); err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	s.frameHub.BroadcastBinary(buf.Bytes())

	if err := s.textHub.BroadcastJSON(TextMessage{Seq: f.Seq, Lines: text}); err != nil {
		return fmt.Errorf("encode text %d: %w", f.Seq, err)
	}

	s.frames.Add(1)
	s.lastSeq.Store(f.Seq)
	return nil
}

// ShouldExit reports whether a viewer asked the run to stop.
func (s *Server) ShouldExit() bool { return s.exit.Load() }

// RequestExit makes ShouldExit return true.
func (s *Server) RequestExit() { s.exit.Store(true) }

// Status snapshots the server state.
func (s *Server) Status() Status {
	return Status{
		RunID:         s.runID,
		Frames:        s.frames.Load(),
		LastSeq:       s.lastSeq.Load(),
		Viewers:       s.frameHub.ClientCount(),
		ExitRequested: s.exit.Load(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
}

// Close stops the hubs and the HTTP server. Safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.frameHub.Stop()
	s.textHub.Stop()
	if !s.open {
		return nil
	}

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown viewer: %w", err)
	}
	if err := <-s.serveDone; err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("serve viewer: %w", err)
	}
	s.logger.Info("viewer stopped", "frames", s.frames.Load())
	return nil
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.Send(indexHTML)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleExit(c *fiber.Ctx) error {
	s.RequestExit()
	s.logger.Info("exit requested by viewer", "ip", c.IP())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"exit_requested": true})
}

func (s *Server) hubHandler(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := hub.NewClient(h, conn)
		if client == nil {
			conn.Close()
			return
		}
		client.Run()
	}
}

// displayAddr turns ":5000" style listen addresses into something a
// browser can open.
func displayAddr(a net.Addr) string {
	host, port, err := net.SplitHostPort(a.String())
	if err != nil {
		return a.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

var _ pipeline.FrameSink = (*Server)(nil)
