// Package i18n resolves user-visible strings for the active language.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

// DefaultLanguage is used on first start and as the fallback table.
const DefaultLanguage = "de"

//go:embed locales/*.json
var locales embed.FS

// Tables maps a base language code to its key/string table.
type Tables map[string]map[string]string

// LoadTables reads the built-in translation tables.
func LoadTables() (Tables, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}

	tables := make(Tables, len(entries))
	for _, e := range entries {
		raw, err := locales.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", e.Name(), err)
		}
		table := map[string]string{}
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", e.Name(), err)
		}
		tables[strings.TrimSuffix(e.Name(), ".json")] = table
	}
	return tables, nil
}

// Option configures a Translator.
type Option func(*Translator)

// WithTables replaces the built-in tables.
func WithTables(tables Tables) Option {
	return func(t *Translator) {
		t.tables = tables
	}
}

// WithDefaultLanguage sets the fallback language.
func WithDefaultLanguage(lang string) Option {
	return func(t *Translator) {
		t.fallback = lang
	}
}

// Translator resolves keys with the chain active table, default table, key.
// It never fails to produce a string.
type Translator struct {
	store  model.StateStore
	logger *logger.Logger

	tables    Tables
	fallback  string
	supported []string
	matcher   language.Matcher

	mu     sync.RWMutex
	active string
}

// NewTranslator creates a translator with the default language active.
func NewTranslator(store model.StateStore, logger *logger.Logger, opts ...Option) (*Translator, error) {
	t := &Translator{
		store:    store,
		logger:   logger,
		fallback: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.tables == nil {
		tables, err := LoadTables()
		if err != nil {
			return nil, err
		}
		t.tables = tables
	}
	if _, ok := t.tables[t.fallback]; !ok {
		return nil, fmt.Errorf("no table for default language %q", t.fallback)
	}

	// the matcher falls back to its first tag
	t.supported = []string{t.fallback}
	others := make([]string, 0, len(t.tables))
	for code := range t.tables {
		if code != t.fallback {
			others = append(others, code)
		}
	}
	sort.Strings(others)
	t.supported = append(t.supported, others...)

	tags := make([]language.Tag, 0, len(t.supported))
	for _, code := range t.supported {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", code, err)
		}
		tags = append(tags, tag)
	}
	t.matcher = language.NewMatcher(tags)
	t.active = t.fallback

	return t, nil
}

// Languages returns the supported base codes, default first.
func (t *Translator) Languages() []string {
	return append([]string(nil), t.supported...)
}

// Language returns the active base code.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Load activates the persisted language. A missing or unsupported value keeps the default.
func (t *Translator) Load(ctx context.Context) {
	stored, err := t.store.Get(ctx, model.LanguageKey)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			t.logger.Warn("Translator: failed to read persisted language",
				"error", err.Error())
		}
		return
	}

	code, ok := t.match(stored)
	if !ok {
		t.logger.Warn("Translator: ignoring unsupported persisted language",
			"language", stored)
		return
	}

	t.mu.Lock()
	t.active = code
	t.mu.Unlock()
}

// SetLanguage activates the supported language closest to lang (a BCP 47
// tag such as "en-US") and persists its base code.
func (t *Translator) SetLanguage(ctx context.Context, lang string) error {
	code, ok := t.match(lang)
	if !ok {
		return fmt.Errorf("unsupported language %q", lang)
	}

	if err := t.store.Set(ctx, model.LanguageKey, code); err != nil {
		return fmt.Errorf("failed to persist language: %w", err)
	}

	t.mu.Lock()
	t.active = code
	t.mu.Unlock()

	t.logger.Debug("Translator: language changed",
		"language", code)
	return nil
}

func (t *Translator) match(lang string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", false
	}
	_, index, confidence := t.matcher.Match(tag)
	if confidence == language.No {
		return "", false
	}
	return t.supported[index], true
}

// T returns the string for key in the active language. Every {name} token
// with a matching entry in params is replaced; other tokens stay as they are.
func (t *Translator) T(key string, params map[string]any) string {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()

	return substitute(t.lookup(active, key), params)
}

// substitute replaces {name} tokens of s in one left-to-right pass, so
// substituted values are never scanned again.
func substitute(s string, params map[string]any) string {
	if len(params) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			break
		}
		open := strings.LastIndexByte(s[:end], '{')
		if open < 0 {
			b.WriteString(s[:end+1])
			s = s[end+1:]
			continue
		}

		b.WriteString(s[:open])
		if value, ok := params[s[open+1:end]]; ok {
			b.WriteString(fmt.Sprint(value))
		} else {
			b.WriteString(s[open : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func (t *Translator) lookup(active, key string) string {
	if s := t.tables[active][key]; s != "" {
		return s
	}
	if s := t.tables[t.fallback][key]; s != "" {
		return s
	}
	return key
}

var errorKeys = []struct {
	err error
	key string
}{
	{model.ErrNotAuthenticated, "error.notAuthenticated"},
	{model.ErrScheduledInPast, "error.scheduledInPast"},
	{model.ErrRecurringNotAllowed, "error.recurringNotAllowed"},
	{model.ErrBulkNotAllowed, "error.bulkNotAllowed"},
	{model.ErrMessageLimitReached, "message.limitReached"},
	{model.ErrEmptyMessage, "error.emptyMessage"},
	{model.ErrEmptyBulk, "error.emptyBulk"},
	{model.ErrInvalidAmount, "error.invalidAmount"},
	{model.ErrInvalidPlan, "error.invalidPlan"},
	{model.ErrInvalidReport, "error.invalidReport"},
	{model.ErrAdminOnly, "error.adminOnly"},
	{model.ErrEmptyCheckout, "checkout.failed"},
}

// Message turns err into user-visible text: the server detail when present,
// a localized text for known client errors, and a generic fallback otherwise.
func (t *Translator) Message(err error) string {
	if err == nil {
		return ""
	}

	var expired *model.SessionExpiredError
	if errors.As(err, &expired) {
		return t.T("error.sessionExpired", nil)
	}
	if detail := model.Detail(err); detail != "" {
		return detail
	}
	for _, ek := range errorKeys {
		if errors.Is(err, ek.err) {
			return t.T(ek.key, nil)
		}
	}
	var netErr *model.NetworkError
	if errors.As(err, &netErr) {
		return t.T("error.network", nil)
	}
	return t.T("message.error", nil)
}
