package scan

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"
)

// Probe deadlines. Probe I/O is bounded so a misbehaving peer cannot
// hold a gate permit indefinitely.
const (
	probeWriteTimeout = 200 * time.Millisecond
	probeReadTimeout  = 400 * time.Millisecond
	tlsHandshakeLimit = 600 * time.Millisecond
	probeReadLimit    = 4096
	bannerReadLimit   = 256
	titleMaxLen       = 120
)

// Strategy selects the identification probe for an open port.
type Strategy int

const (
	ProbeNone Strategy = iota
	ProbeHTTP
	ProbeTLS
	ProbeSSH
	ProbeRedis
)

var httpPorts = map[int]bool{
	80: true, 81: true, 82: true, 591: true, 8000: true, 8001: true,
	8008: true, 8080: true, 8081: true, 8088: true, 8888: true,
}

var tlsPorts = map[int]bool{
	443: true, 8443: true, 9443: true, 993: true, 995: true, 465: true,
}

var sshPorts = map[int]bool{
	22: true, 2222: true,
}

// strategyFor maps a port number and probe flags to a probe strategy.
// It is a pure function over the closed set of strategies.
func strategyFor(port int, probeRedis bool) Strategy {
	switch {
	case tlsPorts[port]:
		return ProbeTLS
	case httpPorts[port]:
		return ProbeHTTP
	case sshPorts[port]:
		return ProbeSSH
	case port == 6379 && probeRedis:
		return ProbeRedis
	default:
		return ProbeNone
	}
}

// runProbe executes the selected probe on an established connection and
// returns the inferred service label and banner. Probe failures degrade
// to empty or partial fields; they never reclassify the port.
func runProbe(conn net.Conn, unit WorkUnit, strategy Strategy) (service, banner string) {
	switch strategy {
	case ProbeHTTP:
		return "http", probeHTTP(conn, unit.Addr)
	case ProbeTLS:
		return "https", probeTLS(conn)
	case ProbeSSH:
		return "ssh", probeSSH(conn)
	case ProbeRedis:
		return "redis", probeRedis(conn)
	default:
		return "", ""
	}
}

// probeHTTP issues a minimal HTTP/1.0 GET and extracts the Server
// header and HTML title from the response.
func probeHTTP(conn net.Conn, addr net.IP) string {
	req := fmt.Sprintf(
		"GET / HTTP/1.0\r\nUser-Agent: lansweep/0.1\r\nHost: %s\r\nConnection: close\r\n\r\n",
		addr.String())

	_ = conn.SetWriteDeadline(time.Now().Add(probeWriteTimeout))
	if _, err := conn.Write([]byte(req)); err != nil {
		return ""
	}

	_ = conn.SetReadDeadline(time.Now().Add(probeReadTimeout))
	buf := make([]byte, 0, probeReadLimit)
	tmp := make([]byte, 1024)
	for len(buf) < probeReadLimit {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			break
		}
	}
	if len(buf) == 0 {
		return ""
	}

	text := string(buf)
	var parts []string
	if server := extractHeader(text, "server"); server != "" {
		parts = append(parts, fmt.Sprintf("server=%s", server))
	}
	if title := extractHTMLTitle(text); title != "" {
		parts = append(parts, fmt.Sprintf("title=%q", title))
	}
	if len(parts) == 0 {
		return "HTTP"
	}
	return "HTTP " + strings.Join(parts, ", ")
}

// probeTLS performs a TLS handshake only (no application data) and
// summarizes the peer certificate.
func probeTLS(conn net.Conn) string {
	_ = conn.SetDeadline(time.Now().Add(tlsHandshakeLimit))
	tlsConn := tls.Client(conn, &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // identification only, never trust
	})
	if err := tlsConn.Handshake(); err != nil {
		return ""
	}

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return ""
	}
	cert := certs[0]

	var parts []string
	if cn := cert.Subject.CommonName; cn != "" {
		parts = append(parts, fmt.Sprintf("subject_cn=%s", cn))
	}
	if cn := cert.Issuer.CommonName; cn != "" {
		parts = append(parts, fmt.Sprintf("issuer_cn=%s", cn))
	}
	parts = append(parts, fmt.Sprintf("not_after=%s", cert.NotAfter.UTC().Format(time.RFC3339)))

	return "TLS: " + strings.Join(parts, ", ")
}

// probeSSH passively reads the server's version banner. Nothing is
// written to the peer.
func probeSSH(conn net.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(probeReadTimeout))
	buf := make([]byte, bannerReadLimit)
	n, err := conn.Read(buf)
	if n == 0 || (err != nil && n <= 0) {
		return ""
	}
	return string(buf[:n])
}

// probeRedis sends a RESP PING and expects a +PONG reply.
func probeRedis(conn net.Conn) string {
	_ = conn.SetWriteDeadline(time.Now().Add(probeWriteTimeout))
	if _, err := conn.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		return ""
	}

	_ = conn.SetReadDeadline(time.Now().Add(probeReadTimeout))
	buf := make([]byte, 64)
	n, _ := conn.Read(buf)
	if n == 0 {
		return ""
	}
	reply := string(buf[:n])
	if strings.HasPrefix(reply, "+PONG") {
		return "redis PONG"
	}
	return strings.TrimSpace(reply)
}

// extractHeader finds a header value in raw HTTP response text,
// stopping at the end of the header block.
func extractHeader(resp, name string) string {
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// extractHTMLTitle extracts the text between <title> tags from the
// response body, truncated to a sane display length.
func extractHTMLTitle(resp string) string {
	lower := strings.ToLower(resp)

	bodyStart := 0
	if i := strings.Index(lower, "\r\n\r\n"); i >= 0 {
		bodyStart = i + 4
	}
	body := resp[bodyStart:]
	lbody := lower[bodyStart:]

	start := strings.Index(lbody, "<title")
	if start < 0 {
		return ""
	}
	gt := strings.Index(lbody[start:], ">")
	if gt < 0 {
		return ""
	}
	rest := body[start+gt+1:]
	end := strings.Index(strings.ToLower(rest), "</title>")
	if end < 0 {
		return ""
	}
	title := strings.TrimSpace(rest[:end])
	if len(title) > titleMaxLen {
		cut := titleMaxLen
		// Back up so a multibyte rune is never split.
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut]
	}
	return title
}
