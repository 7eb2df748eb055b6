package testutil

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
)

// Origin is a loopback HTTP origin that records the raw bytes of every
// request it receives and answers each with a fixed response.
type Origin struct {
	ln       net.Listener
	response []byte
	requests chan []byte
	wg       sync.WaitGroup
}

// StartOrigin serves response to every connection until ctx is done or the
// test ends.
func StartOrigin(t *testing.T, ctx context.Context, response []byte) *Origin {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	o := &Origin{ln: ln, response: response, requests: make(chan []byte, 64)}
	o.wg.Go(o.serve)
	context.AfterFunc(ctx, func() { _ = ln.Close() })
	t.Cleanup(o.Close)
	return o
}

// Addr returns the origin's host:port.
func (o *Origin) Addr() string {
	return o.ln.Addr().String()
}

// Request returns the next recorded request, failing the test if ctx ends
// first.
func (o *Origin) Request(t *testing.T, ctx context.Context) []byte {
	t.Helper()

	select {
	case req := <-o.requests:
		return req
	case <-ctx.Done():
		t.Fatal("origin: no request received")
		return nil
	}
}

// Close stops accepting and waits for in-flight connections.
func (o *Origin) Close() {
	_ = o.ln.Close()
	o.wg.Wait()
}

func (o *Origin) serve() {
	for {
		c, err := o.ln.Accept()
		if err != nil {
			return
		}
		o.wg.Go(func() {
			defer c.Close()
			req := readRequest(c)
			o.requests <- req
			_, _ = c.Write(o.response)
		})
	}
}

// readRequest reads until the header block and any Content-Length body
// have arrived, or the peer stops sending.
func readRequest(c net.Conn) []byte {
	var raw []byte
	buf := make([]byte, 4096)
	for !requestComplete(raw) {
		n, err := c.Read(buf)
		raw = append(raw, buf[:n]...)
		if err != nil {
			break
		}
	}
	return raw
}

func requestComplete(raw []byte) bool {
	end := bytes.Index(raw, []byte("\r\n\r\n"))
	if end < 0 {
		return false
	}
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(raw[:end+4])))
	if err != nil || req.ContentLength <= 0 {
		return true
	}
	return int64(len(raw)-end-4) >= req.ContentLength
}
