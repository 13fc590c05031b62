package checkin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"expo-backend/models"
	"expo-backend/store"
)

// Collection is one table that can hold registrants.
type Collection struct {
	Name       string
	EntityType string
}

// roleEntityTypes names the entity type of the known role collections.
var roleEntityTypes = map[string]string{
	"speakers": models.EntitySpeaker,
	"visitors": models.EntityVisitor,
	"partners": models.EntityPartner,
}

// Collections builds the lookup order: the ticket collection, then the role
// collections as given. Unknown roles take the singular of the table name as
// their entity type.
func Collections(ticket string, roles []string) []Collection {
	out := []Collection{{Name: ticket, EntityType: models.EntityTicket}}
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" || role == ticket {
			continue
		}
		out = append(out, Collection{Name: role, EntityType: entityType(role)})
	}
	return out
}

func entityType(collection string) string {
	name := collection
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if t, ok := roleEntityTypes[strings.ToLower(name)]; ok {
		return t
	}
	return strings.TrimSuffix(name, "s")
}

// Resolver finds the registrant holding a ticket code.
type Resolver struct {
	collections []Collection
	columns     *Introspector
	timeout     time.Duration
	logger      *slog.Logger
}

func NewResolver(collections []Collection, columns *Introspector, timeout time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		collections: collections,
		columns:     columns,
		timeout:     timeout,
		logger:      logger,
	}
}

// Resolve tries each collection in order and returns the first match.
// A failing collection is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, sess store.Session, key string) (models.Registrant, error) {
	if key == "" {
		return models.Registrant{}, ErrBadInput
	}

	for _, c := range r.collections {
		set := r.columns.Columns(ctx, sess, c.Name)
		if set.Empty() {
			continue
		}

		row, err := r.findOne(ctx, sess, c, set, key)
		if err != nil {
			if !errors.Is(err, store.ErrNoRows) {
				r.logger.Warn("ticket lookup failed", "collection", c.Name, "ticket_code", key, "error", err)
			}
			continue
		}

		rec := registrantFromRow(row, c, key)
		r.logger.Debug("ticket resolved", "collection", c.Name, "ticket_code", key, "entity_id", rec.EntityID)
		return rec, nil
	}

	return models.Registrant{}, ErrNotFound
}

func (r *Resolver) findOne(ctx context.Context, sess store.Session, c Collection, set ColumnSet, key string) (store.Row, error) {
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return sess.FindOne(callCtx, c.Name, set.Ticket, key)
}
