package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultReceiveSize is the capacity given to a nil or empty receive buffer.
const DefaultReceiveSize = 4096

// State is the lifecycle state of a Conn.
type State int32

const (
	// StateDisconnected means Connect has not succeeded yet.
	StateDisconnected State = iota

	// StateConnected means the socket is usable.
	StateConnected

	// StateBroken means the socket failed, was interrupted or closed.
	// A broken Conn cannot be reused.
	StateBroken
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Option configures a Conn.
type Option func(*Conn)

// WithDialTimeout bounds how long Connect may take. Zero means no limit
// other than the context.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.dialTimeout = d
	}
}

// WithReadTimeout bounds each ReceiveMore call. Zero disables the deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.readTimeout = d
	}
}

// WithSOCKS5Proxy routes the connection through a SOCKS5 proxy at addr
// ("host:port").
func WithSOCKS5Proxy(addr string) Option {
	return func(c *Conn) {
		c.proxyAddress = addr
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Conn is one outbound TCP connection to the discovery service.
//
// Send and ReceiveMore are meant for a single goroutine at a time.
// Interrupt, State and Close may be called from any goroutine.
type Conn struct {
	dialTimeout  time.Duration
	readTimeout  time.Duration
	proxyAddress string
	logger       *slog.Logger

	mu    sync.Mutex
	conn  net.Conn
	state atomic.Int32

	interrupted atomic.Bool
}

// New creates an unconnected Conn.
func New(opts ...Option) *Conn {
	c := &Conn{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial creates a Conn and connects it to host:port.
func Dial(ctx context.Context, host string, port int, opts ...Option) (*Conn, error) {
	c := New(opts...)
	if err := c.Connect(ctx, host, port); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// RemoteAddr returns the remote address, or "" when not connected.
func (c *Conn) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Connect dials host:port. It is only valid on a Disconnected Conn.
func (c *Conn) Connect(ctx context.Context, host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateConnected:
		return nil
	case StateBroken:
		return newError(KindConnect, "dial", ErrBroken)
	}

	if host == "" || port < 1 || port > 65535 {
		return newError(KindCreate, "dial", fmt.Errorf("invalid address %q", net.JoinHostPort(host, strconv.Itoa(port))))
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	dialer, err := c.dialer()
	if err != nil {
		return newError(KindCreate, "dial", err)
	}

	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	conn, err := dialContext(ctx, dialer, address)
	if err != nil {
		return newError(KindConnect, "dial", err)
	}

	c.conn = conn
	c.state.Store(int32(StateConnected))
	c.logger.Debug("connected to discovery service",
		"address", address,
		"proxy", c.proxyAddress != "")
	return nil
}

// dialer returns a direct dialer or a SOCKS5 dialer when a proxy is set.
func (c *Conn) dialer() (proxy.Dialer, error) {
	direct := &net.Dialer{Timeout: c.dialTimeout}
	if c.proxyAddress == "" {
		return direct, nil
	}
	if !IsValidProxyAddress(c.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
	}
	d, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return d, nil
}

// dialContext honors ctx even for dialers that only implement Dial.
func dialContext(ctx context.Context, d proxy.Dialer, address string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := d.Dial("tcp", address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// usable returns the socket or the error explaining why there is none.
func (c *Conn) usable(op string) (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.State() == StateDisconnected:
		return nil, newError(KindIO, op, ErrNotConnected)
	case c.State() == StateBroken, c.conn == nil:
		return nil, newError(KindIO, op, ErrBroken)
	}
	return c.conn, nil
}

// Send writes all of p. Any failure breaks the Conn.
func (c *Conn) Send(p []byte) error {
	conn, err := c.usable("send")
	if err != nil {
		return err
	}

	for written := 0; written < len(p); {
		n, err := conn.Write(p[written:])
		if err != nil {
			c.markBroken()
			return newError(KindIO, "send", err)
		}
		written += n
	}

	c.logger.Debug("request sent", "bytes", len(p))
	return nil
}

// ReceiveMore blocks until at least one byte is read and appends it to buf,
// returning the extended slice. When buf has no spare capacity its capacity
// is doubled first.
//
// An orderly remote close returns ErrRemoteClosed, a read deadline expiry
// returns ErrTimeout, and a read unblocked by Interrupt returns
// ErrInterrupted. Each of them breaks the Conn.
func (c *Conn) ReceiveMore(buf []byte) ([]byte, error) {
	conn, err := c.usable("receive")
	if err != nil {
		return buf, err
	}

	buf = grow(buf)

	if c.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			c.markBroken()
			return buf, newError(KindIO, "receive", err)
		}
	}
	if c.interrupted.Load() {
		c.markBroken()
		return buf, newError(KindIO, "receive", ErrInterrupted)
	}

	n, err := conn.Read(buf[len(buf):cap(buf)])
	buf = buf[:len(buf)+n]
	if n > 0 {
		// Data read together with EOF is returned now; the next call
		// reports the close.
		return buf, nil
	}

	c.markBroken()
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return buf, newError(KindIO, "receive", ErrRemoteClosed)
	case c.interrupted.Load():
		return buf, newError(KindIO, "receive", ErrInterrupted)
	case isTimeout(err):
		return buf, newError(KindIO, "receive", ErrTimeout)
	default:
		return buf, newError(KindIO, "receive", err)
	}
}

// grow doubles the capacity of a full buffer, keeping its contents.
func grow(buf []byte) []byte {
	if len(buf) < cap(buf) {
		return buf
	}
	size := cap(buf) * 2
	if size == 0 {
		size = DefaultReceiveSize
	}
	grown := make([]byte, len(buf), size)
	copy(grown, buf)
	return grown
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Interrupt makes a pending or future ReceiveMore return ErrInterrupted.
// The Conn is Broken afterwards.
func (c *Conn) Interrupt() error {
	c.interrupted.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	c.markBroken()
	if conn == nil {
		return nil
	}
	if err := conn.SetReadDeadline(time.Now()); err != nil && !errors.Is(err, net.ErrClosed) {
		return newError(KindIO, "interrupt", err)
	}
	c.logger.Debug("receive interrupted")
	return nil
}

// Close releases the socket. The Conn is Broken afterwards.
func (c *Conn) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.markBroken()
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return newError(KindIO, "close", err)
	}
	return nil
}

func (c *Conn) markBroken() {
	c.state.Store(int32(StateBroken))
}

// IsValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
