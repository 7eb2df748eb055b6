package proxy

import (
	"bytes"
	"strings"
)

// Rewrite serializes the request in origin-relative form.
//
// The request target becomes the path and query, and the first Host header
// whose value is the bare target host gets the full authority instead. All
// other bytes are copied unchanged, including whatever part of the body
// arrived with the headers.
func (r *Request) Rewrite() []byte {
	var b bytes.Buffer
	b.Grow(len(r.rest) + 256 + 64*len(r.headers))

	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.RequestURI())
	b.WriteByte(' ')
	b.WriteString(r.Version)
	b.WriteString(r.eol)

	bare := r.bareHost()
	replaced := false
	for _, h := range r.headers {
		if replaced || !strings.EqualFold(h.name, "Host") || !strings.EqualFold(h.value(), bare) {
			b.Write(h.raw)
			continue
		}
		b.Write(h.raw[:h.valueStart])
		b.WriteString(r.Authority())
		b.Write(h.raw[h.valueEnd:])
		replaced = true
	}

	b.Write(r.rest)
	return b.Bytes()
}
