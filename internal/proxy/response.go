package proxy

import (
	"io"
	"regexp"
	"strings"
)

// markupEscaper neutralizes markup in a URL without touching '&', so
// ordinary query strings appear in the page exactly as requested.
var markupEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

// writeForbidden sends the complete 403 response for a blocked url.
func writeForbidden(w io.Writer, url string) error {
	_, err := io.WriteString(w, "HTTP/1.1 403 Forbidden\r\n"+
		"Content-Type: text/html\r\n\r\n"+
		"<html><body><h1>Blocked</h1>"+
		"<p>Access to "+markupEscaper.Replace(url)+" is blocked</p></body></html>")
	return err
}

var statusLine = regexp.MustCompile(`HTTP/1\.[01] (\d{3})`)

// findStatus returns the status code of the first status line in chunk.
func findStatus(chunk []byte) (string, bool) {
	m := statusLine.FindSubmatch(chunk)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}
