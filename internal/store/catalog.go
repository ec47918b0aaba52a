// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/padaria-hortal/hortal/internal/events"
	"github.com/padaria-hortal/hortal/internal/models"
)

// CreateProduct stores a new catalog product. A missing ID is assigned;
// new products default to active.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := s.update("create", events.TableProducts, func(txn *badger.Txn) error {
		return setJSON(txn, productKeyPrefix+p.ID, p)
	})
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	s.publishChange(ctx, events.TableProducts, events.OpInsert, p.ID, p)
	return nil
}

// UpdateProduct overwrites an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	err := s.update("update", events.TableProducts, func(txn *badger.Txn) error {
		var existing models.Product
		if err := getJSON(txn, productKeyPrefix+p.ID, &existing); err != nil {
			return err
		}
		return setJSON(txn, productKeyPrefix+p.ID, p)
	})
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	s.publishChange(ctx, events.TableProducts, events.OpUpdate, p.ID, p)
	return nil
}

// DeactivateProduct soft-deletes a product. The row stays so historical
// orders keep resolvable references.
func (s *Store) DeactivateProduct(ctx context.Context, id string) error {
	var p models.Product
	err := s.update("deactivate", events.TableProducts, func(txn *badger.Txn) error {
		if err := getJSON(txn, productKeyPrefix+id, &p); err != nil {
			return err
		}
		p.Active = false
		return setJSON(txn, productKeyPrefix+id, &p)
	})
	if err != nil {
		return fmt.Errorf("deactivate product %s: %w", id, err)
	}
	s.publishChange(ctx, events.TableProducts, events.OpUpdate, id, &p)
	return nil
}

// GetProduct fetches a product by ID.
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.view("get", events.TableProducts, func(txn *badger.Txn) error {
		return getJSON(txn, productKeyPrefix+id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns the catalog sorted by name. When activeOnly is set,
// soft-deleted products are filtered out.
func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	var products []models.Product
	err := s.view("list", events.TableProducts, func(txn *badger.Txn) error {
		return scanPrefix(txn, productKeyPrefix, func(val []byte) error {
			var p models.Product
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("decode product: %w", err)
			}
			if activeOnly && !p.Active {
				return nil
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

// CreateCategory stores a new category.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := s.update("create", events.TableCategories, func(txn *badger.Txn) error {
		return setJSON(txn, categoryKeyPrefix+c.ID, c)
	})
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	s.publishChange(ctx, events.TableCategories, events.OpInsert, c.ID, c)
	return nil
}

// UpdateCategory overwrites an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	err := s.update("update", events.TableCategories, func(txn *badger.Txn) error {
		var existing models.Category
		if err := getJSON(txn, categoryKeyPrefix+c.ID, &existing); err != nil {
			return err
		}
		return setJSON(txn, categoryKeyPrefix+c.ID, c)
	})
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	s.publishChange(ctx, events.TableCategories, events.OpUpdate, c.ID, c)
	return nil
}

// DeactivateCategory soft-deletes a category.
func (s *Store) DeactivateCategory(ctx context.Context, id string) error {
	var c models.Category
	err := s.update("deactivate", events.TableCategories, func(txn *badger.Txn) error {
		if err := getJSON(txn, categoryKeyPrefix+id, &c); err != nil {
			return err
		}
		c.Active = false
		return setJSON(txn, categoryKeyPrefix+id, &c)
	})
	if err != nil {
		return fmt.Errorf("deactivate category %s: %w", id, err)
	}
	s.publishChange(ctx, events.TableCategories, events.OpUpdate, id, &c)
	return nil
}

// ListCategories returns categories sorted by display order, then name.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	var categories []models.Category
	err := s.view("list", events.TableCategories, func(txn *badger.Txn) error {
		return scanPrefix(txn, categoryKeyPrefix, func(val []byte) error {
			var c models.Category
			if err := json.Unmarshal(val, &c); err != nil {
				return fmt.Errorf("decode category: %w", err)
			}
			if activeOnly && !c.Active {
				return nil
			}
			categories = append(categories, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].DisplayOrder != categories[j].DisplayOrder {
			return categories[i].DisplayOrder < categories[j].DisplayOrder
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}
