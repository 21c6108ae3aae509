// Package auditlog provides a non-blocking, batched writer for operator
// action audit entries.
package auditlog

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Entry is a single audit record.
type Entry struct {
	TenantID   uuid.UUID
	Actor      string
	Action     string
	Resource   string
	ResourceID uuid.UUID
	Detail     []byte
	IPAddress  string
	UserAgent  string
}

// Writer batches Entry values and flushes them to Postgres on a ticker, or
// as soon as flushBatch entries are pending, draining fully on shutdown.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

// NewWriter constructs a Writer. Call Start to begin the background flush
// loop.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start launches the background flush loop; it returns once ctx is
// cancelled and the buffer has been drained.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Close waits for the background loop to finish draining.
func (w *Writer) Close() {
	w.wg.Wait()
}

// Log enqueues an entry without blocking; if the buffer is full the entry
// is dropped and a warning is logged.
func (w *Writer) Log(tenantID uuid.UUID, actor, action, resource string, resourceID uuid.UUID, detail []byte) {
	e := Entry{
		TenantID:   tenantID,
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
	}
	select {
	case w.entries <- e:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "action", action, "resource", resource)
	}
}

// LogFromRequest records the actor as "operator", takes the client IP and
// user-agent from the request, and enqueues the entry the same way Log does.
func (w *Writer) LogFromRequest(r *http.Request, tenantID uuid.UUID, action, resource string, resourceID uuid.UUID, detail []byte) {
	e := Entry{
		TenantID:   tenantID,
		Actor:      "operator",
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	}
	select {
	case w.entries <- e:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "action", action, "resource", resource)
	}
}

func (w *Writer) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	for {
		select {
		case <-ctx.Done():
			w.drain(&batch)
			return
		case e, ok := <-w.entries:
			if !ok {
				w.drain(&batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= flushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *Writer) drain(batch *[]Entry) {
	close(w.entries)
	for e := range w.entries {
		*batch = append(*batch, e)
	}
	if len(*batch) > 0 {
		w.flush(*batch)
	}
}

func (w *Writer) flush(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, e := range batch {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO audit_log (id, tenant_id, actor, action, resource, resource_id, detail, ip_address, user_agent, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
			uuid.New(), e.TenantID, e.Actor, e.Action, e.Resource, e.ResourceID, e.Detail, e.IPAddress, e.UserAgent,
		)
		if err != nil {
			w.logger.Error("flushing audit log entry", "error", err, "action", e.Action)
		}
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	if addr, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addr.Addr().String()
	}
	return r.RemoteAddr
}
