package personality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

const settingKey = "personality"

// SettingsStore is the key/value backend the personality is persisted in.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store keeps the current personality in a SettingsStore, falling back to a
// default when none was set.
type Store struct {
	settings SettingsStore
	fallback Personality
	log      *slog.Logger
}

// NewStore creates a Store whose default is the named preset.
func NewStore(settings SettingsStore, defaultPreset string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if defaultPreset == "" {
		defaultPreset = DefaultPreset
	}
	fallback, err := Preset(defaultPreset)
	if err != nil {
		return nil, err
	}
	return &Store{
		settings: settings,
		fallback: fallback,
		log:      log.With("component", "personality_store"),
	}, nil
}

// Current returns the stored personality, or the default when none is stored
// or the stored value is unreadable.
func (s *Store) Current(ctx context.Context) (Personality, error) {
	raw, ok, err := s.settings.GetSetting(ctx, settingKey)
	if err != nil {
		return Personality{}, fmt.Errorf("failed to load personality: %w", err)
	}
	if !ok {
		return s.fallback, nil
	}

	var p Personality
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Validate() != nil {
		s.log.WarnContext(ctx, "Stored personality is invalid, using default", "error", err)
		return s.fallback, nil
	}
	return p, nil
}

// Set validates and stores p.
func (s *Store) Set(ctx context.Context, p Personality) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode personality: %w", err)
	}
	if err := s.settings.SetSetting(ctx, settingKey, string(data)); err != nil {
		return fmt.Errorf("failed to save personality: %w", err)
	}
	s.log.InfoContext(ctx, "Personality updated", "name", p.Name)
	return nil
}

// SetPreset stores the named preset.
func (s *Store) SetPreset(ctx context.Context, name string) (Personality, error) {
	p, err := Preset(name)
	if err != nil {
		return Personality{}, err
	}
	if err := s.Set(ctx, p); err != nil {
		return Personality{}, err
	}
	return p, nil
}

// Reset goes back to the default personality.
func (s *Store) Reset(ctx context.Context) error {
	return s.Set(ctx, s.fallback)
}
