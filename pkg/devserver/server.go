// Copyright 2026 CNI authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package devserver implements a passive TCP listener used as a development
// harness. It accepts connections without reading from or writing to them
// and reports its lifecycle (listening, connection, close, error) as log
// lines.
package devserver

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 1337
)

// Lifecycle lines. These are the observable interface of the server.
const (
	msgConnection = "new connection to dev server"
	msgListening  = "Dev server started on port: %d"
	msgClose      = "Closing and removing docker containers"
	msgError      = "Error occured, reason: %v"
)

// State is the listener lifecycle: unbound, bound, closed.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateClosed:
		return "closed"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

type Options struct {
	Host string
	Port int
	// NetNS is the path of a network namespace to bind in, e.g.
	// /var/run/netns/dev. Empty means the current namespace.
	NetNS string
	// Listeners returns inherited sockets. Nil means systemd socket
	// activation (LISTEN_FDS).
	Listeners func() ([]net.Listener, error)
}

// Hooks are optional callbacks run after the matching log line.
//
// Connection and Error run on the goroutine calling Serve, so a slow hook
// delays the next Accept. They may call Close; Close then returns without
// waiting for Serve, which returns ErrServerClosed once the hook is done.
type Hooks struct {
	Listening  func(addr net.Addr)
	Connection func(id string, conn net.Conn)
	Close      func()
	Error      func(err error)
}

type Server struct {
	opts  Options
	log   logrus.FieldLogger
	hooks Hooks

	mu      sync.Mutex
	state   State
	ln      net.Listener
	conns   map[string]net.Conn
	serving chan struct{}
	// inHook is set while Connection or Error runs.
	inHook  bool
	closing chan struct{}
	closed  chan struct{}
}

// New returns an unbound server. An empty Host means 127.0.0.1; Port 0
// picks an ephemeral port.
func New(opts Options, log logrus.FieldLogger, hooks Hooks) *Server {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	return &Server{
		opts:   opts,
		log:    log,
		hooks:  hooks,
		conns:   make(map[string]net.Conn),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// Listen binds the listener. A failed bind is logged once and leaves the
// server unbound.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateBound:
		s.mu.Unlock()
		return ErrAlreadyListening
	case StateClosed:
		s.mu.Unlock()
		return ErrServerClosed
	}
	ln, err := s.listen(ctx)
	if err != nil {
		s.mu.Unlock()
		s.reportError(err)
		return pkgerrors.Wrap(err, "error getting listener")
	}
	s.ln = ln
	s.state = StateBound
	// logged under the lock so no connection line can precede it
	s.log.Infof(msgListening, portOf(ln.Addr()))
	s.mu.Unlock()

	if s.hooks.Listening != nil {
		s.hooks.Listening(ln.Addr())
	}
	return nil
}

// Serve accepts connections until the server is closed. Accepted
// connections are held open and never read.
func (s *Server) Serve() error {
	s.mu.Lock()
	switch {
	case s.state == StateUnbound:
		s.mu.Unlock()
		return ErrNotListening
	case s.state == StateClosed:
		s.mu.Unlock()
		return ErrServerClosed
	case s.serving != nil:
		s.mu.Unlock()
		return ErrAlreadyServing
	}
	done := make(chan struct{})
	s.serving = done
	ln := s.ln
	s.mu.Unlock()

	err := s.accept(ln)
	close(done)
	if errors.Is(err, ErrServerClosed) {
		// Close is still logging and running hooks
		<-s.closed
	}
	return err
}

func (s *Server) accept(ln net.Listener) error {
	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.State() == StateClosed {
				return ErrServerClosed
			}
			s.reportError(err)
			if isTransient(err) {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				t := time.NewTimer(tempDelay)
				select {
				case <-t.C:
				case <-s.closing:
					t.Stop()
					return ErrServerClosed
				}
				continue
			}
			if cerr := s.shutdown(false); cerr != nil && !errors.Is(cerr, ErrServerClosed) {
				s.log.WithError(cerr).Debug("shutdown after accept failure")
			}
			return pkgerrors.Wrap(err, "error accepting connection")
		}
		tempDelay = 0
		s.track(conn)
	}
}

// ListenAndServe binds and serves until ctx is cancelled or Close is
// called. It returns ErrServerClosed after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()
	return s.Serve()
}

// Close stops accepting, drops every held connection and logs the close
// line once.
func (s *Server) Close() error {
	return s.shutdown(true)
}

func (s *Server) shutdown(wait bool) error {
	s.mu.Lock()
	switch s.state {
	case StateUnbound:
		s.mu.Unlock()
		return ErrNotListening
	case StateClosed:
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.state = StateClosed
	close(s.closing)
	ln, done, conns := s.ln, s.serving, s.conns
	s.conns = make(map[string]net.Conn)
	// the accept loop cannot finish while it is inside a hook
	wait = wait && !s.inHook
	s.mu.Unlock()

	err := ln.Close()
	for id, c := range conns {
		c.Close()
		s.log.WithField("conn", id).Debug("connection released")
	}
	if wait && done != nil {
		<-done
	}

	s.log.Info(msgClose)
	if s.hooks.Close != nil {
		s.hooks.Close()
	}
	close(s.closed)

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return pkgerrors.Wrap(err, "error closing listener")
	}
	return nil
}

func (s *Server) track(conn net.Conn) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		conn.Close()
		s.log.WithField("remote", conn.RemoteAddr()).Debug("dropping connection accepted during shutdown")
		return
	}
	s.conns[id] = conn
	s.mu.Unlock()

	s.log.Info(msgConnection)
	s.log.WithFields(logrus.Fields{"conn": id, "remote": conn.RemoteAddr()}).Debug("holding connection")
	if s.hooks.Connection != nil {
		s.runHook(func() { s.hooks.Connection(id, conn) })
	}
}

func (s *Server) reportError(err error) {
	s.log.Errorf(msgError, err)
	if s.hooks.Error != nil {
		s.runHook(func() { s.hooks.Error(err) })
	}
}

func (s *Server) runHook(fn func()) {
	s.mu.Lock()
	s.inHook = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inHook = false
		s.mu.Unlock()
	}()
	fn()
}

// Addr is the bound address, or nil while unbound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveConnections is the number of connections currently held open.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func portOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	_, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}
