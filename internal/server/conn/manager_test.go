package conn

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/server/workerpool"
	"github.com/serezk4/collectiond/internal/wire/frame"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// echoRouter uppercases the payload so we can assert a well-defined
// response shape without pulling in the wire/payload schema.
type echoRouter struct{}

func (echoRouter) RoutePayload(ctx context.Context, raw []byte) []byte {
	out := make([]byte, len(raw))
	for i, b := range raw {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *workerpool.Pool, *workerpool.Pool) {
	t.Helper()
	log := discardLogger()
	readPool := workerpool.New("read", 2, 16, log)
	writePool := workerpool.New("write", 2, 16, log)

	m, err := New(0, echoRouter{}, readPool, writePool, log)
	require.NoError(t, err)

	go m.Run()
	t.Cleanup(func() {
		m.Close()
		readPool.Close()
		writePool.Close()
	})

	return m, readPool, writePool
}

func writeFrame(t *testing.T, c net.Conn, payload []byte) {
	t.Helper()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	_, err := c.Write(lenBuf[:])
	require.NoError(t, err)
	_, err = c.Write(payload)
	require.NoError(t, err)
}

func readFrame(t *testing.T, c net.Conn) []byte {
	t.Helper()
	var lenBuf [4]byte
	_, err := io.ReadFull(c, lenBuf[:])
	require.NoError(t, err)
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	_, err = io.ReadFull(c, body)
	require.NoError(t, err)
	return body
}

func dial(t *testing.T, m *Manager) net.Conn {
	t.Helper()
	port, err := m.Port()
	require.NoError(t, err)

	var c net.Conn
	require.Eventually(t, func() bool {
		c, err = net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	return c
}

func TestManagerEchoesOneFramedRequest(t *testing.T) {
	m := newManagerOnly(t)
	c := dial(t, m)
	defer c.Close()

	writeFrame(t, c, []byte("hello"))
	got := readFrame(t, c)
	require.Equal(t, "HELLO", string(got))
}

func newManagerOnly(t *testing.T) *Manager {
	m, _, _ := newTestManager(t)
	return m
}

func TestManagerPreservesRequestOrderOnOneConnection(t *testing.T) {
	m := newManagerOnly(t)
	c := dial(t, m)
	defer c.Close()

	writeFrame(t, c, []byte("one"))
	writeFrame(t, c, []byte("two"))
	writeFrame(t, c, []byte("three"))

	require.Equal(t, "ONE", string(readFrame(t, c)))
	require.Equal(t, "TWO", string(readFrame(t, c)))
	require.Equal(t, "THREE", string(readFrame(t, c)))
}

func TestManagerHandlesMultipleConnections(t *testing.T) {
	m := newManagerOnly(t)

	c1 := dial(t, m)
	defer c1.Close()
	c2 := dial(t, m)
	defer c2.Close()

	writeFrame(t, c1, []byte("alpha"))
	writeFrame(t, c2, []byte("beta"))

	require.Equal(t, "ALPHA", string(readFrame(t, c1)))
	require.Equal(t, "BETA", string(readFrame(t, c2)))
}

func TestScheduleReadClosesMostRecentlyAcceptedConnOnSaturation(t *testing.T) {
	log := discardLogger()
	// Zero workers and zero queue capacity means Submit always rejects.
	readPool := workerpool.New("read", 0, 0, log)
	writePool := workerpool.New("write", 2, 16, log)
	t.Cleanup(func() {
		readPool.Close()
		writePool.Close()
	})

	m, err := New(0, echoRouter{}, readPool, writePool, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(m.listenFD)
		_ = unix.Close(m.epollFD)
	})

	triggeringFD, recentFD := 101, 202
	m.conns[triggeringFD] = &connState{fd: triggeringFD, decoder: frame.NewDecoder()}
	m.conns[recentFD] = &connState{fd: recentFD, decoder: frame.NewDecoder()}
	m.lastAcceptedFD = recentFD

	m.scheduleRead(triggeringFD)

	_, triggeringStillOpen := m.conns[triggeringFD]
	_, recentStillOpen := m.conns[recentFD]
	require.True(t, triggeringStillOpen, "the triggering connection should survive a saturation rejection")
	require.False(t, recentStillOpen, "the most recently accepted connection should be evicted instead")
}

func TestScheduleReadFallsBackToTriggeringFDWhenNoneAccepted(t *testing.T) {
	log := discardLogger()
	readPool := workerpool.New("read", 0, 0, log)
	writePool := workerpool.New("write", 2, 16, log)
	t.Cleanup(func() {
		readPool.Close()
		writePool.Close()
	})

	m, err := New(0, echoRouter{}, readPool, writePool, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(m.listenFD)
		_ = unix.Close(m.epollFD)
	})

	triggeringFD := 101
	m.conns[triggeringFD] = &connState{fd: triggeringFD, decoder: frame.NewDecoder()}

	m.scheduleRead(triggeringFD)

	_, stillOpen := m.conns[triggeringFD]
	require.False(t, stillOpen)
}

func TestManagerClosesConnectionOnFramingError(t *testing.T) {
	m := newManagerOnly(t)
	c := dial(t, m)
	defer c.Close()

	// A declared length far larger than MaxLength is a fatal framing
	// error; the server must close the connection.
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 0xFFFFFFFF)
	_, err := c.Write(lenBuf[:])
	require.NoError(t, err)

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = c.Read(buf)
	require.Error(t, err) // EOF or reset, either signals the close
}
