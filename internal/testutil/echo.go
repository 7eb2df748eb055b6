package testutil

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

// AssertEcho writes msg to c and fails the test unless the same bytes come
// back within a few seconds. The deadline is cleared afterwards so c can be
// reused.
func AssertEcho(t *testing.T, c net.Conn, msg string) {
	t.Helper()

	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	defer func() { _ = c.SetDeadline(time.Time{}) }()

	if _, err := io.WriteString(c, msg); err != nil {
		t.Fatalf("write echo: %v", err)
	}
	got := make([]byte, len(msg))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if !bytes.Equal(got, []byte(msg)) {
		t.Fatalf("echo = %q, want %q", got, msg)
	}
}
