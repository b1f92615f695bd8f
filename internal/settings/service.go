// Package settings holds the company branding shown on every card and the
// switch that turns card generation on and off.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	KeyEnable         = "warranty.enable"
	KeyCompanyName    = "company.name"
	KeyCompanyID      = "company.id"
	KeyCompanyCity    = "company.city"
	KeyCompanyAddress = "company.address"
	KeyCompanyPhone   = "company.phone"
	KeyLogoURL        = "company.logo_url"
	KeySignatureURL   = "company.signature_url"
	KeyBadgeURL       = "company.badge_url"
)

type kind int

const (
	kindText kind = iota
	kindURL
	kindToggle
)

type Field struct {
	Key   string
	Label string
	kind  kind
	def   string
	Help  string
}

// Fields lists every setting in form order.
var Fields = []Field{
	{Key: KeyEnable, Label: "Enable warranty cards", kind: kindToggle, def: "yes",
		Help: "Generate warranty cards for completed orders"},
	{Key: KeyCompanyName, Label: "Company name", kind: kindText, def: "БЕБИ ГРУП ЕООД"},
	{Key: KeyCompanyID, Label: "Company ID (ЕИК)", kind: kindText, def: "206222651"},
	{Key: KeyCompanyCity, Label: "Company city", kind: kindText, def: "Пловдив"},
	{Key: KeyCompanyAddress, Label: "Company address", kind: kindText, def: "бул. Македония №99А"},
	{Key: KeyCompanyPhone, Label: "Company phone", kind: kindText, def: "0877 873 654"},
	{Key: KeyLogoURL, Label: "Logo URL", kind: kindURL,
		Help: "Primary logo used on the warranty card."},
	{Key: KeySignatureURL, Label: "Signature image URL", kind: kindURL,
		Help: "Transparent PNG shown above the signature line."},
	{Key: KeyBadgeURL, Label: "Warranty badge image URL", kind: kindURL,
		Help: "Recommended size 350x350 PNG. WebP does not render in PDF."},
}

var ErrUnknownKey = errors.New("unknown setting")

func lookup(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Known reports whether key names a setting.
func Known(key string) bool {
	_, ok := lookup(key)
	return ok
}

func (f Field) IsToggle() bool { return f.kind == kindToggle }
func (f Field) IsURL() bool    { return f.kind == kindURL }

// Company is the branding snapshot a render works from.
type Company struct {
	Name         string
	TaxID        string
	City         string
	Address      string
	Phone        string
	LogoURL      string
	SignatureURL string
	BadgeURL     string
}

type store interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value, updatedBy string) error
}

const cacheKey = "all"

type Service struct {
	repo  store
	cache *expirable.LRU[string, map[string]string]
	log   *zap.Logger
}

func NewService(repo store, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: expirable.NewLRU[string, map[string]string](1, nil, ttl),
		log:   log.Named("settings"),
	}
}

// values reads through to the repo on every call so a write from any
// process is seen by the next read. The cache keeps the last good snapshot
// and only serves it while the repo is failing.
func (s *Service) values(ctx context.Context) (map[string]string, error) {
	v, err := s.repo.All(ctx)
	if err != nil {
		if last, ok := s.cache.Get(cacheKey); ok {
			s.log.Warn("settings read failed, serving last snapshot", zap.Error(err))
			return last, nil
		}
		return nil, err
	}
	s.cache.Add(cacheKey, v)
	return v, nil
}

// Get returns the stored value or the field default.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	f, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	vals, err := s.values(ctx)
	if err != nil {
		return "", err
	}
	if v, ok := vals[key]; ok {
		return v, nil
	}
	return f.def, nil
}

// Values returns every field with defaults applied, keyed by setting key.
func (s *Service) Values(ctx context.Context) (map[string]string, error) {
	vals, err := s.values(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		if v, ok := vals[f.Key]; ok {
			out[f.Key] = v
		} else {
			out[f.Key] = f.def
		}
	}
	return out, nil
}

// Enabled reports whether cards are generated. A storage error with no
// snapshot to fall back on counts as enabled, matching the default.
func (s *Service) Enabled(ctx context.Context) bool {
	v, err := s.Get(ctx, KeyEnable)
	if err != nil {
		s.log.Warn("read enable flag", zap.Error(err))
		return true
	}
	return v == "yes"
}

func (s *Service) Company(ctx context.Context) (Company, error) {
	v, err := s.Values(ctx)
	if err != nil {
		return Company{}, err
	}
	return Company{
		Name:         v[KeyCompanyName],
		TaxID:        v[KeyCompanyID],
		City:         v[KeyCompanyCity],
		Address:      v[KeyCompanyAddress],
		Phone:        v[KeyCompanyPhone],
		LogoURL:      v[KeyLogoURL],
		SignatureURL: v[KeySignatureURL],
		BadgeURL:     v[KeyBadgeURL],
	}, nil
}

// Set sanitises and stores a single value.
func (s *Service) Set(ctx context.Context, key, value, updatedBy string) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := s.repo.Set(ctx, key, clean(f, value), updatedBy); err != nil {
		return err
	}
	s.cache.Remove(cacheKey)
	s.log.Info("setting updated", zap.String("key", key), zap.String("updated_by", updatedBy))
	return nil
}

// Save applies a full form submission. A toggle missing from the form is
// stored as "no", the way an unchecked checkbox arrives.
func (s *Service) Save(ctx context.Context, form map[string]string, updatedBy string) error {
	for k := range form {
		if _, ok := lookup(k); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}
	defer s.cache.Remove(cacheKey)
	for _, f := range Fields {
		v, present := form[f.Key]
		if !present && !f.IsToggle() {
			continue
		}
		if err := s.repo.Set(ctx, f.Key, clean(f, v), updatedBy); err != nil {
			return err
		}
	}
	s.log.Info("settings saved", zap.String("updated_by", updatedBy))
	return nil
}

func clean(f Field, v string) string {
	switch f.kind {
	case kindToggle:
		if v == "yes" || v == "on" || v == "true" {
			return "yes"
		}
		return "no"
	case kindURL:
		return URL(v)
	default:
		return Text(v)
	}
}
