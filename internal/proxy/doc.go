// Package proxy implements the forwarding HTTP proxy.
//
// Each accepted connection is served by its own goroutine, which reads the
// request once, refuses blocklisted hosts with a 403, and otherwise sends
// the request to the origin in origin-relative form and streams the
// response back unmodified. Connections are never reused.
package proxy
