// Package audit records search requests in the search_logs table.
// Recording is best-effort: failures are logged and counted, never returned
// to the search caller.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/kofilter/pkg/db"
	"github.com/japaniel/kofilter/pkg/ingest"
	"github.com/japaniel/kofilter/pkg/metrics"
)

// defaultRows is the page size assumed when a request has no rows parameter.
const defaultRows = 10

// clientIPHeaders are consulted in order; the first usable value wins.
var clientIPHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_CLIENT_IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_FORWARDED",
	"HTTP_X_CLUSTER_CLIENT_IP",
	"HTTP_FORWARDED_FOR",
	"HTTP_FORWARDED",
	"X-CLIENT-IP",
	"X-Real-IP",
}

// Request is one search call as seen by the audit log.
type Request struct {
	Header     http.Header
	RemoteAddr string
	Params     url.Values // user, q, fq, facet, rows
	Hits       int
}

// ClientIP resolves the caller address from proxy headers, falling back to
// the connection's remote address.
func ClientIP(h http.Header, remoteAddr string) string {
	for _, name := range clientIPHeaders {
		v := strings.TrimSpace(h.Get(name))
		if v == "" || strings.EqualFold(v, "unknown") {
			continue
		}
		// X-Forwarded-For lists the original client first
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		return v
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// InSubnet reports whether ip shares the /24 network of self. Loopback
// callers are never considered local so that manual testing is logged.
func InSubnet(self netip.Addr, ip string) bool {
	if ip == "127.0.0.1" || ip == "localhost" || !self.IsValid() {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() || !self.Is4() {
		return false
	}
	prefix, err := self.Prefix(24)
	if err != nil {
		return false
	}
	return prefix.Contains(addr)
}

// LocalIPv4 returns the first non-loopback IPv4 address of this host.
func LocalIPv4() (netip.Addr, bool) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ipnet.IP.To4()); ok {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// UserAllowed reports whether user is one of the configured users. A missing
// user is never allowed.
func UserAllowed(user string, users []string) bool {
	if user == "" {
		return false
	}
	for _, u := range users {
		if u == user {
			return true
		}
	}
	return false
}

// NewSearchLog builds the row for r. The result count is the number of
// documents actually returned: hits capped by the requested rows.
func NewSearchLog(r Request, ip string) db.SearchLog {
	rows := defaultRows
	if v := r.Params.Get("rows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			rows = n
		}
	}
	return db.SearchLog{
		ID:          uuid.NewString(),
		UserIP:      ip,
		UserName:    r.Params.Get("user"),
		QueryFull:   r.Params.Encode(),
		Q:           r.Params.Get("q"),
		FQ:          r.Params.Get("fq"),
		ResultCount: min(r.Hits, rows),
		FacetUsed:   r.Params.Has("facet"),
	}
}

// Writer commits search logs asynchronously in batches.
type Writer struct {
	bw   *ingest.BatchWriter
	self netip.Addr

	Logger  *log.Logger
	Metrics *metrics.Recorder
}

// NewWriter creates a writer. Requests from self's /24 network are not
// recorded; pass the zero Addr to record everything.
func NewWriter(conn *sql.DB, self netip.Addr, batchSize int, flushInterval time.Duration) *Writer {
	w := &Writer{bw: ingest.NewBatchWriter(conn, batchSize, flushInterval), self: self}
	w.bw.OnCommit = func(n int) { w.Metrics.AuditWritten(n) }
	w.bw.OnError = func(err error) {
		n := 1
		var be *ingest.BatchError
		if errors.As(err, &be) {
			n = be.Size
		}
		w.Metrics.AuditDropped("db", n)
		w.logf("audit: %v", err)
	}
	return w
}

func (w *Writer) logf(format string, args ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, args...)
	}
}

// Record queues r for writing.
func (w *Writer) Record(r Request) {
	ip := ClientIP(r.Header, r.RemoteAddr)
	if InSubnet(w.self, ip) {
		w.Metrics.AuditDropped("internal", 1)
		return
	}
	l := NewSearchLog(r, ip)
	l.AddedAt = time.Now()
	err := w.bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return db.InsertSearchLog(tx, l)
	})
	if err != nil {
		w.Metrics.AuditDropped("closed", 1)
		w.logf("audit: dropping search log %s: %v", l.ID, err)
	}
}

// Flush starts committing buffered records.
func (w *Writer) Flush() {
	if err := w.bw.Flush(); err != nil {
		w.logf("audit: flush: %v", err)
	}
}

// Close commits pending records. The first write error, if any, is
// returned for the operator; search callers should ignore it.
func (w *Writer) Close() error {
	return w.bw.Close()
}
