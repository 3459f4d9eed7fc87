// Package netio implements the readiness-notification TCP listener that
// feeds raw client bytes into the hand-off queue for FIX parsing. It is
// Linux-only: the original is built directly against <sys/epoll.h>, and this
// spec targets the same single-machine Linux deployment.
package netio

import (
	"fmt"
	"sync/atomic"

	"github.com/luxfi/log"
	"golang.org/x/sys/unix"

	"github.com/luxfi/fixgateway/pkg/queue"
)

// RawPacket is a slice of bytes read from one client connection, tagged
// with the client's socket file descriptor so downstream components (the
// FIX dispatcher's per-session frame buffer) can keep per-connection state.
// Closed is set, with Data nil, when the connection has been torn down so
// the dispatcher can release any buffered partial frame for that fd.
type RawPacket struct {
	ClientFd int
	Data     []byte
	Closed   bool
}

const (
	readBufferSize = 1000
	listenBacklog  = 10
	epollTimeoutMs = 1000
)

// Listener runs a single-threaded epoll event loop: level-triggered on the
// server socket (new connections), edge-triggered on client sockets
// (incoming data). It never blocks for longer than its poll timeout, so a
// stop flag set from another goroutine is observed promptly.
type Listener struct {
	port      int
	maxEvents int
	ingressQ  *queue.Queue[RawPacket]
	logger    log.Logger
	serverFd  int
	epollFd   int
}

// New creates a Listener bound to port, forwarding raw client reads onto
// ingressQ. Call Run to start serving.
func New(port int, maxEvents int, ingressQ *queue.Queue[RawPacket], logger log.Logger) *Listener {
	if maxEvents <= 0 {
		maxEvents = 64
	}
	return &Listener{port: port, maxEvents: maxEvents, ingressQ: ingressQ, logger: logger, serverFd: -1, epollFd: -1}
}

// Run sets up the listening socket and epoll instance, then blocks running
// the event loop until stopFlag is observed true, after which it tears
// everything down and closes the ingress queue. Intended to be submitted as
// a Worker task body.
func (l *Listener) Run(stopFlag *atomic.Bool) error {
	if err := l.setupServer(); err != nil {
		return err
	}
	l.eventLoop(stopFlag)
	return l.teardown()
}

func (l *Listener) setupServer() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("netio: socket: %w", err)
	}
	l.serverFd = fd

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("netio: setsockopt SO_REUSEADDR: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: l.port}
	if err := unix.Bind(fd, addr); err != nil {
		return fmt.Errorf("netio: bind port %d: %w", l.port, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		return fmt.Errorf("netio: listen: %w", err)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("netio: epoll_create1: %w", err)
	}
	l.epollFd = epfd

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("netio: epoll_ctl add server fd: %w", err)
	}

	l.logger.Info("gateway listening", "port", l.port)
	return nil
}

func (l *Listener) eventLoop(stopFlag *atomic.Bool) {
	events := make([]unix.EpollEvent, l.maxEvents)
	for !stopFlag.Load() {
		n, err := unix.EpollWait(l.epollFd, events, epollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			l.logger.Error("epoll_wait failed", "error", err)
			continue
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.serverFd {
				l.handleAccept()
			} else {
				l.handleRead(fd)
			}
		}
	}
}

func (l *Listener) handleAccept() {
	clientFd, _, err := unix.Accept(l.serverFd)
	if err != nil {
		return
	}
	if err := unix.SetNonblock(clientFd, true); err != nil {
		l.logger.Warn("failed to set client socket non-blocking", "fd", clientFd, "error", err)
	}

	event := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(clientFd)}
	if err := unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_ADD, clientFd, &event); err != nil {
		l.logger.Warn("epoll_ctl add client fd failed", "fd", clientFd, "error", err)
		unix.Close(clientFd)
	}
}

func (l *Listener) handleRead(clientFd int) {
	buf := make([]byte, readBufferSize)
	n, err := unix.Read(clientFd, buf)
	if n <= 0 || err != nil {
		unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_DEL, clientFd, nil)
		unix.Close(clientFd)
		l.ingressQ.Push(RawPacket{ClientFd: clientFd, Closed: true})
		return
	}

	if pushErr := l.ingressQ.Push(RawPacket{ClientFd: clientFd, Data: buf[:n]}); pushErr != nil {
		// Queue already closed (shutdown in progress): drop the packet.
		return
	}
}

func (l *Listener) teardown() error {
	if l.epollFd >= 0 {
		unix.Close(l.epollFd)
	}
	if l.serverFd >= 0 {
		unix.Close(l.serverFd)
	}
	l.ingressQ.Close()
	l.logger.Info("gateway listener stopped")
	return nil
}
