// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/models"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateProfile stores a new profile. Emails are unique; a duplicate
// returns ErrEmailTaken.
func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Role == "" {
		p.Role = models.RoleCustomer
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	email := normalizeEmail(p.Email)

	err := s.update("create", events.TableProfiles, func(txn *badger.Txn) error {
		emailKey := []byte(profileEmailKeyPrefix + email)
		_, err := txn.Get(emailKey)
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email index: %w", err)
		}
		if err := setJSON(txn, profileKeyPrefix+p.ID, p); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(p.ID))
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	s.publishChange(ctx, events.TableProfiles, events.OpInsert, p.ID, p.Public())
	return nil
}

// GetProfile fetches a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.view("get", events.TableProfiles, func(txn *badger.Txn) error {
		return getJSON(txn, profileKeyPrefix+id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByEmail resolves the email index and loads the profile.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.view("get_by_email", events.TableProfiles, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileEmailKeyPrefix + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get email index: %w", err)
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, profileKeyPrefix+id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile overwrites mutable profile fields. Email, role, and the
// password hash are preserved from the stored row; dedicated operations
// change those.
func (s *Store) UpdateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var stored models.Profile
	err := s.update("update", events.TableProfiles, func(txn *badger.Txn) error {
		if err := getJSON(txn, profileKeyPrefix+p.ID, &stored); err != nil {
			return err
		}
		stored.Name = p.Name
		stored.Phone = p.Phone
		stored.CPF = p.CPF
		stored.Address = p.Address
		stored.CashbackBalance = p.CashbackBalance
		if stored.CashbackBalance < 0 {
			stored.CashbackBalance = 0
		}
		return setJSON(txn, profileKeyPrefix+p.ID, &stored)
	})
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", p.ID, err)
	}
	s.publishChange(ctx, events.TableProfiles, events.OpUpdate, stored.ID, stored.Public())
	return &stored, nil
}

// ListProfiles returns all profiles sorted by name. Admin-only surface;
// password hashes are stripped.
func (s *Store) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.view("list", events.TableProfiles, func(txn *badger.Txn) error {
		return scanPrefix(txn, profileKeyPrefix, func(val []byte) error {
			var p models.Profile
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			profiles = append(profiles, p.Public())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(profiles, func(i, j int) bool {
		return strings.ToLower(profiles[i].Name) < strings.ToLower(profiles[j].Name)
	})
	return profiles, nil
}

// GetSettings returns the storefront settings, falling back to the
// defaults when nothing was saved yet.
func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()
	err := s.view("get", events.TableSettings, func(txn *badger.Txn) error {
		return getJSON(txn, settingsKey, &settings)
	})
	if errors.Is(err, ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

// SeedSettings writes the configured storefront values unless an admin
// already saved settings. Called once at startup.
func (s *Store) SeedSettings(ctx context.Context, settings models.Settings) error {
	seeded := false
	err := s.update("seed", events.TableSettings, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(settingsKey))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		seeded = true
		return setJSON(txn, settingsKey, &settings)
	})
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if seeded {
		s.publishChange(ctx, events.TableSettings, events.OpUpdate, settingsKey, settings)
	}
	return nil
}

// UpdateSettings overwrites the storefront settings.
func (s *Store) UpdateSettings(ctx context.Context, settings models.Settings) error {
	err := s.update("update", events.TableSettings, func(txn *badger.Txn) error {
		return setJSON(txn, settingsKey, &settings)
	})
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	s.publishChange(ctx, events.TableSettings, events.OpUpdate, settingsKey, settings)
	return nil
}
