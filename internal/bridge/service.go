package bridge

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/scenebridge/bridgectl/internal/observability"
	"github.com/scenebridge/bridgectl/internal/scene"
)

// Bridge endpoint configuration.
type ServiceConfig struct {
	ListenAddr      string
	AdminListenAddr string
	CorsOrigins     []string
	ReadBufferBytes int
	WriteTimeout    time.Duration
}

// Bridge service defaults. The listen port is the one controllers are
// hardwired to; the read buffer matches the host plugin's socket reads.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      "127.0.0.1:1314",
		ReadBufferBytes: 128 * 1024,
		WriteTimeout:    5 * time.Second,
	}
}

// Service owns the bridge lifecycle: the TCP listener, one reader goroutine
// per controller connection, the command queue and the single dispatch
// goroutine that drives the scene adapter.
type Service struct {
	cfg        ServiceConfig
	sc         scene.Adapter
	queue      *CommandQueue
	dispatcher *Dispatcher
	units      *UnitsConverter

	connsMu sync.Mutex
	conns   map[*ClientConn]struct{}

	clientCount atomic.Int64
	started     time.Time
}

func NewService(sc scene.Adapter) *Service {
	return NewServiceWithConfig(DefaultServiceConfig(), sc)
}

func NewServiceWithConfig(cfg ServiceConfig, sc scene.Adapter) *Service {
	def := DefaultServiceConfig()
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.ReadBufferBytes <= 0 {
		cfg.ReadBufferBytes = def.ReadBufferBytes
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	queue := NewCommandQueue()
	units := NewUnitsConverter()
	units.Recompute(sc.UnitSystem())
	return &Service{
		cfg:        cfg,
		sc:         sc,
		queue:      queue,
		units:      units,
		dispatcher: NewDispatcher(sc, units, queue),
	}
}

// Dispatcher exposes the engine for direct in-process use.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// NotifyUnitsChanged is the host's measurement-system change callback.
// Safe to call from any goroutine; in-flight commands may observe the
// previous multiplier for at most one command.
func (s *Service) NotifyUnitsChanged() {
	s.units.Recompute(s.sc.UnitSystem())
}

// Run blocks until signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info().Msgf("bridge.Service.Run listening addr=%q", ln.Addr().String())

	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		adminErr := make(chan error, 1)
		go func() {
			adminErr <- s.serveAdmin(ctx, addr)
		}()
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- s.Serve(ctx, ln)
		}()
		select {
		case err := <-serveErr:
			return err
		case err := <-adminErr:
			if err != nil {
				return err
			}
			return <-serveErr
		}
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop and the dispatch loop on an existing listener
// until the context is canceled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	s.started = time.Now()
	s.connsMu.Lock()
	if s.conns == nil {
		s.conns = make(map[*ClientConn]struct{})
	}
	s.connsMu.Unlock()

	dispatchDone := make(chan error, 1)
	go func() {
		dispatchDone <- s.dispatcher.Run(ctx)
	}()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return <-dispatchDone
			}
			return err
		}
		client := newClientConn(conn, s.cfg.WriteTimeout)
		s.trackConn(client)
		go s.handleConn(client)
	}
}

// handleConn reads controller frames for one connection. Framing is
// per-read: all complete newline-delimited lines obtained from a single read
// form one batch, and only the batch's final command is reply-bearing. An
// incomplete trailing fragment is retained for the next read.
func (s *Service) handleConn(client *ClientConn) {
	defer s.untrackConn(client)
	defer client.Close()
	remote := client.RemoteAddr()
	active := s.clientCount.Add(1)
	observability.SetActiveConnections(active)
	log.Info().Msgf("bridge.Service.handleConn controller connected conn=%q remote=%q active=%d", client.ID(), remote, active)
	defer func() {
		remaining := s.clientCount.Add(-1)
		observability.SetActiveConnections(remaining)
		log.Info().Msgf("bridge.Service.handleConn controller disconnected conn=%q remote=%q active=%d", client.ID(), remote, remaining)
	}()

	buf := make([]byte, s.cfg.ReadBufferBytes)
	var pending []byte
	for {
		n, err := client.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var lines [][]byte
			lines, pending = splitFrames(pending)
			s.enqueueBatch(client, lines)
		}
		if err != nil {
			return
		}
	}
}

// enqueueBatch pushes each command of one batch in arrival order, marking
// only the last as reply-bearing.
func (s *Service) enqueueBatch(client *ClientConn, lines [][]byte) {
	for i, line := range lines {
		s.queue.Push(QueuedCommand{
			Line:      line,
			Reply:     client,
			WantReply: i == len(lines)-1,
		})
	}
	if len(lines) > 0 {
		observability.SetQueueDepth(s.queue.Depth())
	}
}

// splitFrames extracts the complete command lines from data. Carriage
// returns are stripped and blank lines dropped; bytes after the final
// newline are returned as the retained fragment.
func splitFrames(data []byte) (lines [][]byte, rest []byte) {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(bytes.ReplaceAll(data[:i], []byte{'\r'}, nil))
		data = data[i+1:]
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	if len(data) > 0 {
		rest = append(rest, data...)
	}
	return lines, rest
}

func (s *Service) trackConn(client *ClientConn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if s.conns == nil {
		s.conns = make(map[*ClientConn]struct{})
	}
	s.conns[client] = struct{}{}
}

func (s *Service) untrackConn(client *ClientConn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, client)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for client := range s.conns {
		client.Close()
		delete(s.conns, client)
	}
}

// ClientConn is one live controller connection: the unique reply destination
// for commands that arrived on it. Once closed it drops replies silently so
// a departed controller can never stall the dispatch loop.
type ClientConn struct {
	id           string
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func newClientConn(conn net.Conn, writeTimeout time.Duration) *ClientConn {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return &ClientConn{
		id:           ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		writeTimeout: writeTimeout,
		conn:         conn,
	}
}

func (c *ClientConn) ID() string {
	return c.id
}

func (c *ClientConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *ClientConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// WriteReply sends one reply frame: UTF-8, un-delimited, exactly once per
// reply-bearing command.
func (c *ClientConn) WriteReply(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		observability.RecordDroppedReply()
		log.Debug().Msgf("bridge.ClientConn.WriteReply dropped conn=%q", c.id)
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		log.Warn().Msgf("bridge.ClientConn.WriteReply err=%v conn=%q", err, c.id)
	}
}

func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
