// Package dialer opens the upstream connection for each proxied request.
//
// The relay asks a Dialer for a connection to the origin named in the
// request URI. By default that is a plain TCP connect; an upstream URL can
// instead chain every origin connection through an HTTP CONNECT proxy, a
// SOCKS5 proxy, or an SSH server.
package dialer
