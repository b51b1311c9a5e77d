package server

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jroosing/hydradns/internal/pool"
)

// workQueueCapacity bounds the single dispatch channel between the listener
// and its worker. The listener back-pressures (awaits channel space) rather
// than dropping when it is full.
const workQueueCapacity = 1000

// maxDatagramSize is large enough to receive any inbound query this
// resolver accepts; outbound responses are separately capped at 512 bytes
// by the query handler's response buffer.
const maxDatagramSize = 4096

// socketBufferSize is applied to both the receive and send buffers of the
// single listening socket via SO_RCVBUF/SO_SNDBUF.
const socketBufferSize = 4 * 1024 * 1024

// datagram is one received packet plus enough context to answer it: which
// socket to reply on, where the client is, and the payload. raw is the
// full-capacity buffer borrowed from bufPool; buf is its populated prefix.
// raw is returned to the pool once Handler.Handle has returned.
type datagram struct {
	conn   *net.UDPConn
	source *net.UDPAddr
	raw    []byte
	buf    []byte
}

// Handler answers one inbound datagram by invoking reply with the bytes to
// send back, or not invoking it at all if nothing should be sent.
type Handler interface {
	Handle(ctx context.Context, payload []byte, reply func([]byte))
}

// UDPServer is the single-socket UDP request pipeline described by the
// resolver's pipeline component: one listener goroutine owns the socket and
// a bounded work channel (capacity 1000); one worker goroutine drains it
// and calls the Handler. If the worker terminates, the listener respawns a
// replacement with a fresh channel and resends the message that triggered
// the respawn, so a single worker panic never loses an in-flight datagram.
type UDPServer struct {
	Logger  *slog.Logger
	Handler Handler
	Limiter *RateLimiter

	mu      sync.Mutex
	conn    *net.UDPConn
	cancel  context.CancelFunc
	bufPool *pool.Pool[[]byte]
}

// recvBufPool lazily builds the per-datagram receive buffer pool on first
// use, so a zero-value UDPServer (as constructed in tests) still works.
func (s *UDPServer) recvBufPool() *pool.Pool[[]byte] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bufPool == nil {
		s.bufPool = pool.New(func() []byte { return make([]byte, maxDatagramSize) })
	}
	return s.bufPool
}

// Run binds addr and serves until ctx is cancelled or an unrecoverable
// socket error occurs. A ReadFromUDP error triggers one rebind attempt on
// the same address; a second consecutive failure is returned as fatal.
func (s *UDPServer) Run(ctx context.Context, addr string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := bindUDP(udpAddr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()
	defer conn.Close()

	work := make(chan datagram, workQueueCapacity)
	workerDone := make(chan struct{})
	s.spawnWorker(runCtx, work, workerDone)

	rebound := false
	bufPool := s.recvBufPool()
	for {
		raw := bufPool.Get()
		n, src, err := conn.ReadFromUDP(raw)
		if err != nil {
			bufPool.Put(raw)
			select {
			case <-runCtx.Done():
				return nil
			default:
			}
			if rebound {
				return err
			}
			rebound = true
			newConn, rebindErr := bindUDP(udpAddr)
			if rebindErr != nil {
				return rebindErr
			}
			conn.Close()
			conn = newConn
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			continue
		}
		rebound = false

		if s.Limiter != nil {
			if ip, ok := netip.AddrFromSlice(src.IP.To16()); ok && !s.Limiter.AllowAddr(ip) {
				bufPool.Put(raw)
				continue
			}
		}

		d := datagram{conn: conn, source: src, raw: raw, buf: raw[:n]}
		work, workerDone = s.enqueue(runCtx, work, workerDone, d)
	}
}

// enqueue sends d to work, back-pressuring (blocking) rather than dropping
// when the channel is full. If workerDone fires first, the worker that owned
// work has terminated (a panic escaped Handler.Handle); enqueue spins up a
// fresh channel and worker and resends d so it is never lost.
func (s *UDPServer) enqueue(ctx context.Context, work chan datagram, workerDone chan struct{}, d datagram) (chan datagram, chan struct{}) {
	select {
	case work <- d:
		return work, workerDone
	case <-ctx.Done():
		return work, workerDone
	case <-workerDone:
	}

	fresh := make(chan datagram, workQueueCapacity)
	freshDone := make(chan struct{})
	s.spawnWorker(ctx, fresh, freshDone)
	select {
	case fresh <- d:
	case <-ctx.Done():
	}
	return fresh, freshDone
}

// spawnWorker runs the single dispatch worker draining work until ctx is
// cancelled or Handler.Handle panics; done is closed in either case so the
// listener's enqueue loop can detect termination and respawn.
func (s *UDPServer) spawnWorker(ctx context.Context, work chan datagram, done chan struct{}) {
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil && s.Logger != nil {
				s.Logger.Error("dns worker panicked", "recover", r)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-work:
				if !ok {
					return
				}
				s.handle(ctx, d)
			}
		}
	}()
}

func (s *UDPServer) handle(ctx context.Context, d datagram) {
	defer s.recvBufPool().Put(d.raw)
	s.Handler.Handle(ctx, d.buf, func(resp []byte) {
		if len(resp) == 0 {
			return
		}
		if _, err := d.conn.WriteToUDP(resp, d.source); err != nil {
			if s.Logger != nil {
				s.Logger.Error("failed to send response", "source", d.source, "err", err)
			}
		}
	})
}

// Stop cancels the run loop and closes the listening socket. In-flight
// responses being written may be abandoned; that is acceptable for UDP.
func (s *UDPServer) Stop(timeout time.Duration) error {
	s.mu.Lock()
	cancel := s.cancel
	conn := s.conn
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	_ = timeout
	return conn.Close()
}

// bindUDP binds addr and tunes the socket's receive/send buffer sizes via
// golang.org/x/sys/unix, the same package the rest of this codebase uses
// for socket-level tuning.
func bindUDP(addr *net.UDPAddr) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	if raw, rawErr := conn.SyscallConn(); rawErr == nil {
		_ = raw.Control(func(fd uintptr) {
			_ = unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_RCVBUF, socketBufferSize)
			_ = unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_SNDBUF, socketBufferSize)
		})
	}
	return conn, nil
}
