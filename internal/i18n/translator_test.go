package i18n

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/zeitnachricht/internal/mocks"
	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/testutil"
)

func newTestTranslator(t *testing.T) (*Translator, *mocks.StateStore) {
	t.Helper()

	store := mocks.NewStateStore(t)
	tr, err := NewTranslator(store, testutil.MakeNoopLogger())
	require.NoError(t, err)
	return tr, store
}

func TestLoadTables(t *testing.T) {
	tables, err := LoadTables()
	require.NoError(t, err)

	require.Contains(t, tables, "de")
	require.Contains(t, tables, "en")
	assert.Equal(t, "Anmelden", tables["de"]["auth.login"])
	assert.Equal(t, "Login", tables["en"]["auth.login"])

	// every English key has a German counterpart
	for key := range tables["en"] {
		assert.Contains(t, tables["de"], key)
	}
}

func TestTranslator_FallbackChain(t *testing.T) {
	tr, store := newTestTranslator(t)
	store.On("Set", mock.Anything, model.LanguageKey, "en").Return(nil).Once()
	require.NoError(t, tr.SetLanguage(context.Background(), "en"))

	// present in both
	assert.Equal(t, "Login", tr.T("auth.login", nil))
	// present only in the default table
	assert.Equal(t, "Willkommen, Ada!", tr.T("session.welcome", map[string]any{"name": "Ada"}))
	// unknown everywhere
	assert.Equal(t, "no.such.key", tr.T("no.such.key", nil))
}

func TestTranslator_Params(t *testing.T) {
	tables := Tables{
		"de": {
			"greet":  "Hallo {name}",
			"twice":  "{name} und {name}",
			"limit":  "Limit {limit} erreicht",
			"broken": "{missing} bleibt",
			"empty":  "",
			"chain":  "{a}",
			"nested": "{x {a}} und }{a}",
		},
		"en": {
			"greet": "Hello {name}",
			"empty": "",
		},
	}
	tr, err := NewTranslator(mocks.NewStateStore(t), testutil.MakeNoopLogger(), WithTables(tables))
	require.NoError(t, err)

	tests := []struct {
		key      string
		params   map[string]any
		expected string
	}{
		{key: "greet", params: map[string]any{"name": "Ada"}, expected: "Hallo Ada"},
		{key: "twice", params: map[string]any{"name": "Ada"}, expected: "Ada und Ada"},
		{key: "limit", params: map[string]any{"limit": 5}, expected: "Limit 5 erreicht"},
		{key: "broken", params: map[string]any{"name": "Ada"}, expected: "{missing} bleibt"},
		{key: "greet", params: nil, expected: "Hallo {name}"},
		{key: "empty", params: nil, expected: "empty"},
		{key: "chain", params: map[string]any{"a": "{b}", "b": "X"}, expected: "{b}"},
		{key: "nested", params: map[string]any{"a": "A"}, expected: "{x A} und }A"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.key, tt.params), func(t *testing.T) {
			assert.Equal(t, tt.expected, tr.T(tt.key, tt.params))
		})
	}
}

func TestTranslator_SetLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "exact", input: "en", expected: "en"},
		{name: "regional variant", input: "en-US", expected: "en"},
		{name: "austrian german", input: "de-AT", expected: "de"},
		{name: "unsupported", input: "ja", wantErr: true},
		{name: "malformed", input: "not a tag!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, store := newTestTranslator(t)
			if !tt.wantErr {
				store.On("Set", mock.Anything, model.LanguageKey, tt.expected).Return(nil).Once()
			}

			err := tr.SetLanguage(context.Background(), tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, DefaultLanguage, tr.Language())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tr.Language())
		})
	}
}

func TestTranslator_SetLanguagePersistFailure(t *testing.T) {
	tr, store := newTestTranslator(t)
	store.On("Set", mock.Anything, model.LanguageKey, "en").Return(errors.New("read-only")).Once()

	err := tr.SetLanguage(context.Background(), "en")
	require.Error(t, err)
	assert.Equal(t, DefaultLanguage, tr.Language())
}

func TestTranslator_Load(t *testing.T) {
	t.Run("first use defaults to german", func(t *testing.T) {
		tr, store := newTestTranslator(t)
		store.On("Get", mock.Anything, model.LanguageKey).Return("", model.ErrNotFound).Once()

		tr.Load(context.Background())
		assert.Equal(t, "de", tr.Language())
		assert.Equal(t, "Abmelden", tr.T("auth.logout", nil))
	})

	t.Run("persisted english", func(t *testing.T) {
		tr, store := newTestTranslator(t)
		store.On("Get", mock.Anything, model.LanguageKey).Return("en", nil).Once()

		tr.Load(context.Background())
		assert.Equal(t, "en", tr.Language())
	})

	t.Run("unsupported persisted value", func(t *testing.T) {
		tr, store := newTestTranslator(t)
		store.On("Get", mock.Anything, model.LanguageKey).Return("xx-invalid-tag-", nil).Once()

		tr.Load(context.Background())
		assert.Equal(t, "de", tr.Language())
	})

	t.Run("store failure", func(t *testing.T) {
		tr, store := newTestTranslator(t)
		store.On("Get", mock.Anything, model.LanguageKey).Return("", errors.New("boom")).Once()

		tr.Load(context.Background())
		assert.Equal(t, "de", tr.Language())
	})
}

func TestTranslator_Message(t *testing.T) {
	tr, _ := newTestTranslator(t)

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "server detail", err: &model.APIError{StatusCode: http.StatusBadRequest, Detail: "Invalid plan"}, expected: "Invalid plan"},
		{name: "no detail", err: &model.APIError{StatusCode: http.StatusInternalServerError}, expected: "Ein Fehler ist aufgetreten"},
		{name: "auth error", err: &model.AuthError{Message: "Incorrect email or password"}, expected: "Incorrect email or password"},
		{name: "session expired", err: &model.SessionExpiredError{Err: &model.APIError{StatusCode: 401, Detail: "expired"}},
			expected: "Ihre Sitzung ist abgelaufen. Bitte melden Sie sich erneut an."},
		{name: "client guard", err: model.ErrScheduledInPast, expected: "Der Lieferzeitpunkt muss in der Zukunft liegen"},
		{name: "wrapped guard", err: fmt.Errorf("create: %w", model.ErrMessageLimitReached), expected: "Nachrichtenlimit erreicht"},
		{name: "network", err: &model.NetworkError{Err: errors.New("refused")}, expected: "Server nicht erreichbar"},
		{name: "unknown", err: errors.New("boom"), expected: "Ein Fehler ist aufgetreten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tr.Message(tt.err))
		})
	}
}

func TestNewTranslator_MissingDefaultTable(t *testing.T) {
	_, err := NewTranslator(mocks.NewStateStore(t), testutil.MakeNoopLogger(),
		WithTables(Tables{"en": {}}))
	require.Error(t, err)
}

func TestTranslator_Languages(t *testing.T) {
	tr, _ := newTestTranslator(t)
	assert.Equal(t, []string{"de", "en"}, tr.Languages())
}
