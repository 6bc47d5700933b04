// Package conn implements the connection manager (C8): a single acceptor
// that owns a non-blocking listening socket registered with epoll, and
// dispatches readable/writable events onto the two I/O worker pools (C9).
//
// This mirrors a Selector/SelectionKey reactor rather than Go's usual
// goroutine-per-connection model: readable schedules a read-pool task,
// writable schedules a write-pool task, and interest masks toggle between
// READ and WRITE — a single-acceptor, non-blocking event cycle, not a
// stylistic accident, so it is implemented against epoll directly instead
// of papered over with blocking goroutines.
package conn

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/server/workerpool"
	"github.com/serezk4/collectiond/internal/wire/frame"
)

// pollTimeout bounds each epoll_wait call so the main loop can observe the
// shutdown flag within 100ms.
const pollTimeout = 100 * time.Millisecond

// readChunk is the size of each read(2) into a connection's buffer.
const readChunk = 8192

// Router resolves a decoded payload to an encoded response.
type Router interface {
	RoutePayload(ctx context.Context, payload []byte) []byte
}

// Manager is the C8 connection manager.
type Manager struct {
	log       logging.Logger
	router    Router
	readPool  *workerpool.Pool
	writePool *workerpool.Pool

	listenFD int
	epollFD  int

	mu             sync.Mutex
	conns          map[int]*connState
	lastAcceptedFD int

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// connState is the per-connection state: a read buffer, a C1 decoder
// instance, an outbound queue, and a serialising mutex held from decode
// through response enqueue so responses are emitted in request order.
type connState struct {
	fd int

	mu          sync.Mutex
	decoder     *frame.Decoder
	readBuf     []byte
	writeQueue  [][]byte
	writeHead   int // bytes of writeQueue[0] already written
	interestOut bool
	closed      bool
}

// New constructs a Manager bound to port, using the given router and I/O
// worker pools.
func New(port int, router Router, readPool, writePool *workerpool.Pool, log logging.Logger) (*Manager, error) {
	listenFD, err := listen(port)
	if err != nil {
		return nil, err
	}

	epollFD, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listenFD)
		return nil, err
	}

	m := &Manager{
		log:            log,
		router:         router,
		readPool:       readPool,
		writePool:      writePool,
		listenFD:       listenFD,
		epollFD:        epollFD,
		conns:          make(map[int]*connState),
		lastAcceptedFD: -1,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	if err := unix.EpollCtl(epollFD, unix.EPOLL_CTL_ADD, listenFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFD),
	}); err != nil {
		unix.Close(epollFD)
		unix.Close(listenFD)
		return nil, err
	}

	return m, nil
}

func listen(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

// Run drives the accept/epoll loop until Close is called. It returns once
// the loop has exited.
func (m *Manager) Run() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	defer close(m.done)

	events := make([]unix.EpollEvent, 64)

	for {
		select {
		case <-m.stop:
			return
		default:
		}

		n, err := unix.EpollWait(m.epollFD, events, int(pollTimeout.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			m.log.Error(context.Background(), "epoll_wait failed", "error", err)
			return
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)

			if fd == m.listenFD {
				m.acceptLoop()
				continue
			}

			if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				m.closeConn(fd)
				continue
			}
			if ev.Events&unix.EPOLLIN != 0 {
				m.scheduleRead(fd)
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				m.scheduleWrite(fd)
			}
		}
	}
}

// acceptLoop accepts every pending connection on the listener, since
// edge-triggered semantics are not assumed — level-triggered epoll may
// report more than one pending connection per wakeup.
func (m *Manager) acceptLoop() {
	for {
		connFD, _, err := unix.Accept(m.listenFD)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			m.log.Warn(context.Background(), "accept failed", "error", err)
			return
		}

		if err := unix.SetNonblock(connFD, true); err != nil {
			unix.Close(connFD)
			continue
		}

		cs := &connState{fd: connFD, decoder: frame.NewDecoder()}

		m.mu.Lock()
		m.conns[connFD] = cs
		m.mu.Unlock()

		if err := unix.EpollCtl(m.epollFD, unix.EPOLL_CTL_ADD, connFD, &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(connFD),
		}); err != nil {
			m.log.Warn(context.Background(), "epoll_ctl add failed", "error", err)
			m.closeConn(connFD)
			continue
		}

		m.mu.Lock()
		m.lastAcceptedFD = connFD
		m.mu.Unlock()

		m.log.Info(context.Background(), "accepted connection", "fd", connFD)
	}
}

// mostRecentlyAcceptedFD reports the fd of the most recently accepted
// connection still known to the manager, or -1 if none has been accepted
// or that connection has since been closed.
func (m *Manager) mostRecentlyAcceptedFD() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[m.lastAcceptedFD]; !ok {
		return -1
	}
	return m.lastAcceptedFD
}

func (m *Manager) connFor(fd int) *connState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[fd]
}

// scheduleRead hands the readable fd to the read pool. A saturated pool
// sheds load by closing the most recently accepted connection, not
// necessarily fd itself.
func (m *Manager) scheduleRead(fd int) {
	cs := m.connFor(fd)
	if cs == nil {
		return
	}

	ok := m.readPool.Submit(func() { m.doRead(cs) })
	if !ok {
		victim := m.mostRecentlyAcceptedFD()
		if victim < 0 {
			victim = fd
		}
		m.log.Warn(context.Background(), "read pool saturated", "fd", fd, "victim_fd", victim, "error", apperrors.ErrBackpressureRejected)
		m.closeConn(victim)
	}
}

// scheduleWrite hands the writable fd to the write pool. A saturated pool
// sheds load by closing the most recently accepted connection, not
// necessarily fd itself.
func (m *Manager) scheduleWrite(fd int) {
	cs := m.connFor(fd)
	if cs == nil {
		return
	}

	ok := m.writePool.Submit(func() { m.doWrite(cs) })
	if !ok {
		victim := m.mostRecentlyAcceptedFD()
		if victim < 0 {
			victim = fd
		}
		m.log.Warn(context.Background(), "write pool saturated", "fd", fd, "victim_fd", victim, "error", apperrors.ErrBackpressureRejected)
		m.closeConn(victim)
	}
}

// doRead reads available bytes, feeds the decoder, and synchronously
// routes each complete payload, serialised by cs.mu so responses for this
// connection are enqueued in request order.
func (m *Manager) doRead(cs *connState) {
	cs.mu.Lock()
	closeAfter := false
	defer func() {
		cs.mu.Unlock()
		if closeAfter {
			m.closeConn(cs.fd)
		}
	}()
	if cs.closed {
		return
	}

	buf := make([]byte, readChunk)
	n, err := unix.Read(cs.fd, buf)
	if n == 0 && err == nil {
		closeAfter = true
		return
	}
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		m.log.Warn(context.Background(), "read failed", "fd", cs.fd, "error", err)
		closeAfter = true
		return
	}

	payloads, ferr := cs.decoder.Push(buf[:n])
	if ferr != nil {
		m.log.Warn(context.Background(), "framing error", "fd", cs.fd, "error", ferr)
		closeAfter = true
		return
	}

	for _, payload := range payloads {
		respPayload := m.router.RoutePayload(context.Background(), payload)
		framed, err := frame.Encode(respPayload)
		if err != nil {
			m.log.Warn(context.Background(), "failed to frame response", "fd", cs.fd, "error", err)
			continue
		}
		cs.writeQueue = append(cs.writeQueue, framed)
	}

	if len(cs.writeQueue) > 0 && !cs.interestOut {
		cs.interestOut = true
		m.setInterest(cs.fd, unix.EPOLLIN|unix.EPOLLOUT)
	}
}

// doWrite drains as much of the outbound queue as the socket accepts in
// one attempt. A partially written buffer stays at the head of the queue.
func (m *Manager) doWrite(cs *connState) {
	cs.mu.Lock()
	closeAfter := false
	defer func() {
		cs.mu.Unlock()
		if closeAfter {
			m.closeConn(cs.fd)
		}
	}()
	if cs.closed {
		return
	}

	for len(cs.writeQueue) > 0 {
		head := cs.writeQueue[0]
		n, err := unix.Write(cs.fd, head[cs.writeHead:])
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			m.log.Warn(context.Background(), "write failed", "fd", cs.fd, "error", err)
			closeAfter = true
			return
		}

		cs.writeHead += n
		if cs.writeHead < len(head) {
			return // partial write, stays at the head
		}

		cs.writeQueue = cs.writeQueue[1:]
		cs.writeHead = 0
	}

	if cs.interestOut {
		cs.interestOut = false
		m.setInterest(cs.fd, unix.EPOLLIN)
	}
}

func (m *Manager) setInterest(fd int, events uint32) {
	_ = unix.EpollCtl(m.epollFD, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

// closeConn closes fd, deregisters it from epoll, and purges its state. It
// is safe to call more than once for the same fd.
func (m *Manager) closeConn(fd int) {
	m.mu.Lock()
	cs, ok := m.conns[fd]
	if ok {
		delete(m.conns, fd)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	cs.mu.Lock()
	cs.closed = true
	cs.mu.Unlock()

	_ = unix.EpollCtl(m.epollFD, unix.EPOLL_CTL_DEL, fd, nil)
	_ = unix.Close(fd)
}

// Port reports the TCP port the listener is bound to — useful when New was
// called with port 0 and the kernel assigned one.
func (m *Manager) Port() (int, error) {
	sa, err := unix.Getsockname(m.listenFD)
	if err != nil {
		return 0, err
	}
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, err
	}
	return v4.Port, nil
}

// Close stops the accept loop, closes the listener and every live
// connection, and waits for Run to return.
func (m *Manager) Close() {
	close(m.stop)
	<-m.done

	m.mu.Lock()
	fds := make([]int, 0, len(m.conns))
	for fd := range m.conns {
		fds = append(fds, fd)
	}
	m.mu.Unlock()

	for _, fd := range fds {
		m.closeConn(fd)
	}

	_ = unix.Close(m.listenFD)
	_ = unix.Close(m.epollFD)
}
