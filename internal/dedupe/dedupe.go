// Package dedupe caches finished pipeline results so a returning applicant is
// redirected to their existing results instead of reprocessed. Entries live
// for 30 days under three keys: a hash of the applicant's contact info, the
// device id, and the result reference id. Cache failures degrade to
// passthrough; the pipeline never blocks on the cache.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/suggest"
)

// TTL is the result retention window: 30 days.
const TTL = 2_592_000 * time.Second

const ttlDays = 30

// Key namespaces.
const (
	userKeyPrefix   = "uwiq:u:"
	deviceKeyPrefix = "uwiq:d:"
	refKeyPrefix    = "uwiq:r:"
)

// Result types carried in the redirect payload.
const (
	ResultFunding = "funding"
	ResultRepair  = "repair"
)

// RedirectPayload is the cached outcome handed back to returning applicants.
type RedirectPayload struct {
	ResultType    string              `json:"resultType"` // funding or repair
	ResultURL     string              `json:"resultUrl"`
	Suggestions   suggest.Suggestions `json:"suggestions"`
	LastUpload    time.Time           `json:"lastUpload"`
	DaysRemaining int                 `json:"daysRemaining"`
	RefID         string              `json:"refId"`
	AffiliateLink string              `json:"affiliateLink"`
}

// Store is the key-value backend behind the cache.
type Store interface {
	// Get returns the payload under key, or found=false when absent.
	Get(ctx context.Context, key string) (*RedirectPayload, bool, error)
	// Set stores the payload under key with the given TTL.
	Set(ctx context.Context, key string, p RedirectPayload, ttl time.Duration) error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// Cache is the dedupe layer the pipeline talks to.
type Cache struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a cache over the given store. A nil store disables deduplication.
func New(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger.Named("dedupe"), now: time.Now}
}

// Available reports whether a backend is configured.
func (c *Cache) Available() bool {
	return c.store != nil
}

// UserKey hashes the applicant's contact info into the user dedupe key.
// Email is lowercased and phone reduced to digits before hashing, so
// formatting differences don't split one applicant across entries.
func UserKey(email, phone string) string {
	sum := sha256.Sum256([]byte(normalizeEmail(email) + "|" + normalizePhone(phone)))
	return userKeyPrefix + hex.EncodeToString(sum[:])
}

// DeviceKey returns the device dedupe key.
func DeviceKey(deviceID string) string {
	return deviceKeyPrefix + deviceID
}

// RefKey returns the reference-id dedupe key.
func RefKey(refID string) string {
	return refKeyPrefix + refID
}

// Lookup checks the user, device, and reference keys in that order and
// returns the first hit. Empty identifiers skip their key. Store errors are
// logged and treated as a miss.
func (c *Cache) Lookup(ctx context.Context, email, phone, deviceID, refID string) *RedirectPayload {
	if c.store == nil {
		return nil
	}

	keys := make([]string, 0, 3)
	if email != "" || phone != "" {
		keys = append(keys, UserKey(email, phone))
	}
	if deviceID != "" {
		keys = append(keys, DeviceKey(deviceID))
	}
	if refID != "" {
		keys = append(keys, RefKey(refID))
	}

	for _, key := range keys {
		p, found, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Warn("cache lookup failed", zap.String("key_prefix", key[:7]), zap.Error(err))
			continue
		}
		if found {
			c.refresh(p)
			return p
		}
	}
	return nil
}

// LookupRef resolves a reference id directly, for the referral endpoint.
func (c *Cache) LookupRef(ctx context.Context, refID string) *RedirectPayload {
	if c.store == nil || refID == "" {
		return nil
	}
	p, found, err := c.store.Get(ctx, RefKey(refID))
	if err != nil {
		c.logger.Warn("referral lookup failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	c.refresh(p)
	return p
}

// Save writes the payload through to all three keys. Partial failures are
// logged; the payload a later lookup finds under any key is identical.
func (c *Cache) Save(ctx context.Context, email, phone, deviceID string, p RedirectPayload) {
	if c.store == nil {
		return
	}

	keys := []string{UserKey(email, phone)}
	if deviceID != "" {
		keys = append(keys, DeviceKey(deviceID))
	}
	if p.RefID != "" {
		keys = append(keys, RefKey(p.RefID))
	}

	for _, key := range keys {
		if err := c.store.Set(ctx, key, p, TTL); err != nil {
			c.logger.Warn("cache write failed", zap.String("key_prefix", key[:7]), zap.Error(err))
		}
	}
}

// Close releases the backing store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// refresh recomputes DaysRemaining from the stored upload time, floored at zero.
func (c *Cache) refresh(p *RedirectPayload) {
	elapsed := int(c.now().Sub(p.LastUpload).Hours() / 24)
	remaining := ttlDays - elapsed
	if remaining < 0 {
		remaining = 0
	}
	p.DaysRemaining = remaining
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
