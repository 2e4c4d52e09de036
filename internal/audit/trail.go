// internal/audit/trail.go
package audit

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"secureauth-service/internal/domain/security"
	"secureauth-service/internal/pkg/geo"
)

// DefaultRetention is how many events the trail keeps before evicting the
// oldest.
const DefaultRetention = 100

// Publisher pushes recorded events to live subscribers.
type Publisher interface {
	PublishEvent(event *security.Event)
}

// Trail is the append-only security audit log. It keeps the most recent
// events up to a fixed retention cap; List returns most-recent-first.
type Trail struct {
	mu        sync.RWMutex
	events    []*security.Event
	retention int

	resolver  *geo.Resolver
	publisher Publisher
	logger    *zap.Logger
}

func NewTrail(retention int, logger *zap.Logger) *Trail {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Trail{
		retention: retention,
		logger:    logger,
	}
}

// WithResolver attaches an optional IP geolocation resolver. Events whose
// detail carries an ip_address get a geo entry added.
func (t *Trail) WithResolver(r *geo.Resolver) *Trail {
	t.resolver = r
	return t
}

// WithPublisher attaches a live event publisher.
func (t *Trail) WithPublisher(p Publisher) *Trail {
	t.publisher = p
	return t
}

// Record appends an event. Never fails; the trail is a best-effort
// diagnostic, not a transaction log.
func (t *Trail) Record(kind security.EventKind, detail map[string]interface{}, sessionID string) *security.Event {
	if detail == nil {
		detail = map[string]interface{}{}
	}

	if ip, ok := detail["ip_address"].(string); ok && t.resolver != nil {
		if ctx := t.resolver.Resolve(ip); ctx != nil {
			detail["geo"] = ctx
		}
	}

	event := &security.Event{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Kind:      kind,
		Detail:    detail,
		SessionID: sessionID,
	}

	t.mu.Lock()
	t.events = append(t.events, event)
	if len(t.events) > t.retention {
		t.events = t.events[len(t.events)-t.retention:]
	}
	t.mu.Unlock()

	t.logger.Info("security event",
		zap.String("event_id", event.ID),
		zap.String("kind", string(kind)),
		zap.String("session_id", sessionID),
	)

	if t.publisher != nil {
		t.publisher.PublishEvent(event)
	}

	return event
}

// List returns up to limit events, most recent first. limit <= 0 means
// everything retained.
func (t *Trail) List(limit int) []*security.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.events)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*security.Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, t.events[i])
	}
	return out
}

// Len reports how many events are currently retained.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}
