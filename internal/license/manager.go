package license

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"licensor/internal/infrastructure"
	"licensor/internal/store"
	"licensor/pkg/contracts/domain"
)

// EventPublisher receives every audit entry as it is appended. The
// websocket hub implements this to feed live dashboards; a no-op publisher
// is used where no feed is wanted.
type EventPublisher interface {
	PublishValidation(entry domain.ValidationLog)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) PublishValidation(domain.ValidationLog) {}

// Options configures a Manager.
type Options struct {
	KeyPrefix string
	Logger    *slog.Logger
	Publisher EventPublisher
	Metrics   *infrastructure.ValidationMetrics
	// Now overrides the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Manager owns all mutations of the license collection and the audit log.
// It holds no license state of its own: every operation loads a working
// copy inside a store Transform and writes the whole collection back before
// releasing the collection lock.
type Manager struct {
	store     *store.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	publisher EventPublisher
	metrics   *infrastructure.ValidationMetrics
	keyPrefix string
	now       func() time.Time
}

// NewManager creates a license manager over the record store.
func NewManager(st *store.Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "LIC"
	}
	return &Manager{
		store:     st,
		logger:    logger.With(slog.String("component", "license.manager")),
		tracer:    otel.Tracer("license-manager"),
		publisher: publisher,
		metrics:   opts.Metrics,
		keyPrefix: prefix,
		now:       now,
	}
}

// List returns a snapshot of all licenses. Read-only; takes no write lock.
func (m *Manager) List(ctx context.Context) ([]domain.License, error) {
	return store.Read[domain.License](ctx, m.store, store.CollectionLicenses)
}

// Get returns the license for key, or ErrLicenseNotFound.
func (m *Manager) Get(ctx context.Context, key string) (*domain.License, error) {
	key = NormalizeKey(key)
	licenses, err := store.Read[domain.License](ctx, m.store, store.CollectionLicenses)
	if err != nil {
		return nil, err
	}
	for i := range licenses {
		if licenses[i].Key == key {
			lic := licenses[i]
			return &lic, nil
		}
	}
	return nil, ErrLicenseNotFound
}

// Delete removes the license for key. No soft-delete.
func (m *Manager) Delete(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	err := store.Transform(ctx, m.store, store.CollectionLicenses, func(items []domain.License) ([]domain.License, error) {
		for i := range items {
			if items[i].Key == key {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrLicenseNotFound
	})
	if err != nil {
		return err
	}
	m.appendAudit(ctx, domain.ValidationLog{
		Event:      domain.EventDelete,
		LicenseKey: key,
		Outcome:    domain.OutcomeSuccess,
		Reason:     domain.ReasonOK,
	})
	m.logger.InfoContext(ctx, "license deleted", slog.String("key", key))
	return nil
}

// Blacklist returns the current global deny-list record.
func (m *Manager) Blacklist(ctx context.Context) (*domain.Blacklist, error) {
	bl, err := store.ReadOne[domain.Blacklist](ctx, m.store, store.CollectionBlacklist)
	if err != nil {
		return nil, err
	}
	return &bl, nil
}

// ReplaceBlacklist overwrites the global deny-list record whole, matching
// the store's whole-document contract.
func (m *Manager) ReplaceBlacklist(ctx context.Context, bl domain.Blacklist) error {
	if err := store.ReplaceOne(ctx, m.store, store.CollectionBlacklist, bl); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "blacklist replaced",
		slog.Int("identities", len(bl.DiscordIDs)),
		slog.Int("ips", len(bl.IPs)),
		slog.Int("hwids", len(bl.HWIDs)),
	)
	return nil
}

// Products returns the product registry snapshot.
func (m *Manager) Products(ctx context.Context) ([]domain.Product, error) {
	return store.Read[domain.Product](ctx, m.store, store.CollectionProducts)
}

// SeedProducts inserts any of the given products that are not yet present.
// Existing records are never overwritten, so operators can edit the
// collection by hand between restarts.
func (m *Manager) SeedProducts(ctx context.Context, seed []domain.Product) error {
	if len(seed) == 0 {
		return nil
	}
	err := store.Transform(ctx, m.store, store.CollectionProducts, func(items []domain.Product) ([]domain.Product, error) {
		known := make(map[string]bool, len(items))
		for i := range items {
			known[items[i].ID] = true
		}
		added := 0
		for _, p := range seed {
			if known[p.ID] {
				continue
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = m.now().UTC()
			}
			items = append(items, p)
			added++
		}
		if added == 0 {
			return nil, store.ErrAborted
		}
		m.logger.InfoContext(ctx, "products seeded", slog.Int("added", added))
		return items, nil
	})
	if errors.Is(err, store.ErrAborted) {
		return nil
	}
	return err
}

// productExists checks the issuance product reference.
func (m *Manager) productExists(ctx context.Context, productID string) (bool, error) {
	products, err := m.Products(ctx)
	if err != nil {
		return false, err
	}
	for i := range products {
		if products[i].ID == productID {
			return true, nil
		}
	}
	return false, nil
}

// appendAudit stamps, persists, and publishes one audit entry. Audit
// failures are logged, never propagated: the primary mutation has already
// committed and must not be reported as failed.
func (m *Manager) appendAudit(ctx context.Context, entry domain.ValidationLog) {
	entry.ID = uuid.New().String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now().UTC()
	}
	if err := store.Append(ctx, m.store, store.CollectionLogs, entry); err != nil {
		m.logger.ErrorContext(ctx, "failed to append audit entry",
			slog.String("event", string(entry.Event)),
			slog.String("key", entry.LicenseKey),
			slog.String("error", err.Error()),
		)
		return
	}
	m.publisher.PublishValidation(entry)
}
