// Package transport owns the single outbound TCP connection to the
// discovery service.
//
// A Conn is dialed once, either directly or through a SOCKS5 proxy, and
// carries exactly one request/response exchange at a time. Any I/O failure,
// orderly remote close, read timeout or Interrupt leaves the Conn Broken.
// There is no reconnect in place: callers construct a fresh Conn.
//
// All failures are reported as *Error values whose Kind tells whether the
// socket could not be created, could not connect, or failed during I/O.
package transport
