package proxy

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		raw           string
		wantMethod    string
		wantURL       string
		wantHost      string
		wantAuthority string
		wantURI       string
		wantDial      string
		wantErr       bool
	}{
		{
			name:          "get with path and query",
			raw:           "GET http://example.org/a/b?x=1&y=2 HTTP/1.1\r\nHost: example.org\r\n\r\n",
			wantMethod:    "GET",
			wantURL:       "http://example.org/a/b?x=1&y=2",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/a/b?x=1&y=2",
			wantDial:      "example.org:80",
		},
		{
			name:          "explicit port",
			raw:           "POST http://example.org:8080/submit HTTP/1.0\r\n\r\n",
			wantMethod:    "POST",
			wantURL:       "http://example.org:8080/submit",
			wantHost:      "example.org",
			wantAuthority: "example.org:8080",
			wantURI:       "/submit",
			wantDial:      "example.org:8080",
		},
		{
			name:          "default port omitted from authority",
			raw:           "HEAD http://example.org:80/ HTTP/1.1\r\n\r\n",
			wantMethod:    "HEAD",
			wantURL:       "http://example.org:80/",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/",
			wantDial:      "example.org:80",
		},
		{
			name:          "empty path becomes slash",
			raw:           "OPTIONS http://example.org HTTP/1.1\r\n\r\n",
			wantMethod:    "OPTIONS",
			wantURL:       "http://example.org",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/",
			wantDial:      "example.org:80",
		},
		{
			name:          "fragment dropped",
			raw:           "DELETE http://example.org/item/7#frag HTTP/1.1\r\n\r\n",
			wantMethod:    "DELETE",
			wantURL:       "http://example.org/item/7#frag",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/item/7",
			wantDial:      "example.org:80",
		},
		{
			name:          "host lowercased",
			raw:           "PUT http://WWW.Example.ORG/x HTTP/1.1\r\n\r\n",
			wantMethod:    "PUT",
			wantURL:       "http://WWW.Example.ORG/x",
			wantHost:      "www.example.org",
			wantAuthority: "WWW.Example.ORG",
			wantURI:       "/x",
			wantDial:      "WWW.Example.ORG:80",
		},
		{
			name:          "ipv6 literal",
			raw:           "GET http://[::1]:8080/ HTTP/1.1\r\n\r\n",
			wantMethod:    "GET",
			wantURL:       "http://[::1]:8080/",
			wantHost:      "::1",
			wantAuthority: "[::1]:8080",
			wantURI:       "/",
			wantDial:      "[::1]:8080",
		},
		{
			name:          "unescaped path characters kept",
			raw:           "GET http://example.org/a|b/{x}^y?q={1} HTTP/1.1\r\n\r\n",
			wantMethod:    "GET",
			wantURL:       "http://example.org/a|b/{x}^y?q={1}",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/a|b/{x}^y?q={1}",
			wantDial:      "example.org:80",
		},
		{
			name:          "invalid percent escape kept",
			raw:           "GET http://example.org/a%zz?b=%zz HTTP/1.1\r\n\r\n",
			wantMethod:    "GET",
			wantURL:       "http://example.org/a%zz?b=%zz",
			wantHost:      "example.org",
			wantAuthority: "example.org",
			wantURI:       "/a%zz?b=%zz",
			wantDial:      "example.org:80",
		},
		{
			name:          "query without path",
			raw:           "GET http://example.org:8080?x=1 HTTP/1.1\r\n\r\n",
			wantMethod:    "GET",
			wantURL:       "http://example.org:8080?x=1",
			wantHost:      "example.org",
			wantAuthority: "example.org:8080",
			wantURI:       "/?x=1",
			wantDial:      "example.org:8080",
		},
		{name: "origin form", raw: "GET /index.html HTTP/1.1\r\nHost: example.org\r\n\r\n", wantErr: true},
		{name: "https scheme", raw: "GET https://example.org/ HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "connect", raw: "CONNECT example.org:443 HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "unsupported method", raw: "PATCH http://example.org/ HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "lowercase method", raw: "get http://example.org/ HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "http/2 version", raw: "GET http://example.org/ HTTP/2.0\r\n\r\n", wantErr: true},
		{name: "missing version", raw: "GET http://example.org/\r\n\r\n", wantErr: true},
		{name: "double space", raw: "GET  http://example.org/ HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "no line terminator", raw: "GET http://example.org/ HTTP/1.1", wantErr: true},
		{name: "bare newline", raw: "GET http://example.org/ HTTP/1.1\n\n", wantErr: true},
		{name: "empty host", raw: "GET http:///path HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "bad port", raw: "GET http://example.org:port/ HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "tls handshake bytes", raw: "\x16\x03\x01\x02\x00\x01\x00\x01\xfc\x03\x03", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := ParseRequest([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequest) {
					t.Fatalf("err = %v, want ErrMalformedRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest() error = %v", err)
			}

			if r.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", r.Method, tt.wantMethod)
			}
			if got := r.URL(); got != tt.wantURL {
				t.Errorf("URL() = %q, want %q", got, tt.wantURL)
			}
			if got := r.Host(); got != tt.wantHost {
				t.Errorf("Host() = %q, want %q", got, tt.wantHost)
			}
			if got := r.Authority(); got != tt.wantAuthority {
				t.Errorf("Authority() = %q, want %q", got, tt.wantAuthority)
			}
			if got := r.RequestURI(); got != tt.wantURI {
				t.Errorf("RequestURI() = %q, want %q", got, tt.wantURI)
			}
			if got := r.DialAddress(); got != tt.wantDial {
				t.Errorf("DialAddress() = %q, want %q", got, tt.wantDial)
			}
		})
	}
}

func TestRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "request line and host",
			raw:  "GET http://example.org:8080/a?b=c HTTP/1.1\r\nHost: example.org\r\nAccept: */*\r\n\r\n",
			want: "GET /a?b=c HTTP/1.1\r\nHost: example.org:8080\r\nAccept: */*\r\n\r\n",
		},
		{
			name: "host already equals authority",
			raw:  "GET http://example.org:8080/ HTTP/1.1\r\nHost: example.org:8080\r\n\r\n",
			want: "GET / HTTP/1.1\r\nHost: example.org:8080\r\n\r\n",
		},
		{
			name: "default port host unchanged",
			raw:  "GET http://example.org/ HTTP/1.0\r\nHost: example.org\r\n\r\n",
			want: "GET / HTTP/1.0\r\nHost: example.org\r\n\r\n",
		},
		{
			name: "unrelated host value left alone",
			raw:  "GET http://example.org:81/ HTTP/1.1\r\nHost: other.example\r\n\r\n",
			want: "GET / HTTP/1.1\r\nHost: other.example\r\n\r\n",
		},
		{
			name: "only first matching host rewritten",
			raw:  "GET http://example.org:81/ HTTP/1.1\r\nHost: example.org\r\nHost: example.org\r\n\r\n",
			want: "GET / HTTP/1.1\r\nHost: example.org:81\r\nHost: example.org\r\n\r\n",
		},
		{
			name: "header spacing kept",
			raw:  "GET http://example.org:81/ HTTP/1.1\r\nhost:example.org  \r\n\r\n",
			want: "GET / HTTP/1.1\r\nhost:example.org:81  \r\n\r\n",
		},
		{
			name: "host-like text in other headers untouched",
			raw:  "GET http://example.org:81/ HTTP/1.1\r\nX-Note: Host: example.org\r\n\r\n",
			want: "GET / HTTP/1.1\r\nX-Note: Host: example.org\r\n\r\n",
		},
		{
			name: "body in same read passes through",
			raw:  "POST http://example.org:81/form HTTP/1.1\r\nHost: example.org\r\nContent-Length: 9\r\n\r\nGET http:",
			want: "POST /form HTTP/1.1\r\nHost: example.org:81\r\nContent-Length: 9\r\n\r\nGET http:",
		},
		{
			name: "truncated header block kept verbatim",
			raw:  "GET http://example.org:81/ HTTP/1.1\r\nHost: example.org\r\nUser-Agent: cu",
			want: "GET / HTTP/1.1\r\nHost: example.org:81\r\nUser-Agent: cu",
		},
		{
			name: "path characters not re-escaped",
			raw:  "GET http://example.org:81/a|b/{x}^y?q={1} HTTP/1.1\r\nHost: example.org\r\n\r\n",
			want: "GET /a|b/{x}^y?q={1} HTTP/1.1\r\nHost: example.org:81\r\n\r\n",
		},
		{
			name: "invalid percent escape forwarded",
			raw:  "GET http://example.org/a%zz HTTP/1.1\r\nHost: example.org\r\n\r\n",
			want: "GET /a%zz HTTP/1.1\r\nHost: example.org\r\n\r\n",
		},
		{
			name: "no headers",
			raw:  "GET http://example.org/x HTTP/1.1\r\n",
			want: "GET /x HTTP/1.1\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := ParseRequest([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseRequest() error = %v", err)
			}
			if got := string(r.Rewrite()); got != tt.want {
				t.Errorf("Rewrite() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}
