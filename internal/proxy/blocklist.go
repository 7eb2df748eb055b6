package proxy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultBlocklist is used when no blocklist entries are configured.
var DefaultBlocklist = []string{"example.com", "google.com"}

// Blocklist is an immutable, ordered set of host substrings. A nil
// *Blocklist blocks nothing.
type Blocklist struct {
	entries []string
}

// NewBlocklist keeps the first occurrence of each non-empty entry, in order.
func NewBlocklist(entries ...string) *Blocklist {
	b := &Blocklist{}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		b.entries = append(b.entries, e)
	}
	return b
}

// Blocked reports whether host contains any entry as a substring, so an
// entry of "google.com" also matches "notgoogle.com".
func (b *Blocklist) Blocked(host string) bool {
	if b == nil {
		return false
	}
	for _, e := range b.entries {
		if strings.Contains(host, e) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in match order.
func (b *Blocklist) Entries() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.entries...)
}

// ReadBlocklist reads one entry per line. Blank lines and lines starting
// with '#' are skipped.
func ReadBlocklist(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blocklist: %w", err)
	}
	return entries, nil
}
