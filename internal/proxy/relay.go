package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// relayResponse copies origin to client one chunk at a time until origin
// reaches EOF, then closes both. first is called once with the first
// non-empty chunk after it has been written to the client. Canceling ctx
// closes both connections to unblock the copy.
func relayResponse(ctx context.Context, client, origin net.Conn, buf []byte, first func([]byte)) (int64, error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = origin.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var written int64
	for {
		n, rerr := origin.Read(buf)
		if n > 0 {
			if _, werr := client.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write client: %w", werr)
			}
			if written == 0 && first != nil {
				first(buf[:n])
			}
			written += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("read origin: %w", rerr)
		}
	}
}
