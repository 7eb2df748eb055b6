package proxy

import (
	"bytes"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrMalformedRequest reports a request line that is not an absolute-URI
// proxy request with a supported method and HTTP version.
var ErrMalformedRequest = errors.New("malformed request")

var supportedMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Request is one client request as it arrived in a single read. Header
// lines keep their raw bytes so that rewriting touches only the request
// target and the Host value.
type Request struct {
	Method  string
	Version string

	target     *url.URL
	rawTarget  string
	requestURI string
	eol        string
	headers    []headerLine
	rest       []byte
}

type headerLine struct {
	raw        []byte
	name       string
	valueStart int
	valueEnd   int
}

func (h headerLine) value() string {
	return string(h.raw[h.valueStart:h.valueEnd])
}

// ParseRequest parses the request line and headers found in buf. Bytes
// past the header block, and any incomplete trailing line, are kept
// verbatim. buf must stay unmodified while the Request is in use.
func ParseRequest(buf []byte) (*Request, error) {
	i := bytes.Index(buf, []byte("\r\n"))
	if i < 0 {
		return nil, ErrMalformedRequest
	}

	parts := strings.Split(string(buf[:i]), " ")
	if len(parts) != 3 {
		return nil, ErrMalformedRequest
	}
	method, rawTarget, version := parts[0], parts[1], parts[2]

	if !supportedMethods[method] {
		return nil, ErrMalformedRequest
	}
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return nil, ErrMalformedRequest
	}
	afterScheme, ok := strings.CutPrefix(rawTarget, "http://")
	if !ok {
		return nil, ErrMalformedRequest
	}

	// Only the authority goes through url.Parse; the path and query are
	// forwarded exactly as sent.
	authority, uri := afterScheme, ""
	if i := strings.IndexAny(afterScheme, "/?#"); i >= 0 {
		authority, uri = afterScheme[:i], afterScheme[i:]
	}
	u, err := url.Parse("http://" + authority)
	if err != nil || u.Hostname() == "" {
		return nil, ErrMalformedRequest
	}

	uri, _, _ = strings.Cut(uri, "#")
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}

	r := &Request{
		Method:     method,
		Version:    version,
		target:     u,
		rawTarget:  rawTarget,
		requestURI: uri,
		eol:        "\r\n",
	}

	rest := buf[i+2:]
	for len(rest) > 0 {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			break
		}
		line := rest[:nl+1]
		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			break
		}
		r.headers = append(r.headers, parseHeaderLine(line))
		rest = rest[nl+1:]
	}
	r.rest = rest

	return r, nil
}

func parseHeaderLine(raw []byte) headerLine {
	h := headerLine{raw: raw}

	content := bytes.TrimRight(raw, "\r\n")
	colon := bytes.IndexByte(content, ':')
	if colon <= 0 {
		return h
	}
	h.name = string(content[:colon])

	start, end := colon+1, len(content)
	for start < end && (content[start] == ' ' || content[start] == '\t') {
		start++
	}
	for end > start && (content[end-1] == ' ' || content[end-1] == '\t') {
		end--
	}
	h.valueStart, h.valueEnd = start, end
	return h
}

// URL returns the absolute request target exactly as the client sent it.
func (r *Request) URL() string {
	return r.rawTarget
}

// Host returns the lowercase target host without port or brackets.
func (r *Request) Host() string {
	return strings.ToLower(r.target.Hostname())
}

// Authority returns the target host plus its port, omitting port 80.
func (r *Request) Authority() string {
	port := r.target.Port()
	if port == "" || port == "80" {
		return r.bareHost()
	}
	return net.JoinHostPort(r.target.Hostname(), port)
}

// RequestURI returns the origin-relative path and query as the client
// wrote them, without any fragment. An empty path becomes "/".
func (r *Request) RequestURI() string {
	return r.requestURI
}

// DialAddress returns host:port of the origin, defaulting to port 80.
func (r *Request) DialAddress() string {
	port := r.target.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(r.target.Hostname(), port)
}

func (r *Request) bareHost() string {
	host := r.target.Hostname()
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
