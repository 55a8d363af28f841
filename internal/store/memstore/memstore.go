// Package memstore is an in-memory core.Store used by tests and the
// "memory" store driver.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// Store keeps products, terms and settings in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	nextProduct int64
	nextTerm    int64

	products   map[int64]*core.Product
	byIdent    map[string]int64
	terms      map[int64]core.Term
	termByName map[string]int64            // attribute + "\x00" + name
	assigned   map[int64]map[string][]int64 // product -> attribute -> term ids

	custom   []core.AttributeDef
	settings core.Settings
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:   make(map[int64]*core.Product),
		byIdent:    make(map[string]int64),
		terms:      make(map[int64]core.Term),
		termByName: make(map[string]int64),
		assigned:   make(map[int64]map[string][]int64),
		now:        time.Now,
	}
}

var _ core.Store = (*Store)(nil)

func termKey(attribute, name string) string {
	return attribute + "\x00" + name
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdent[identifier]
	if !ok {
		return core.Product{}, core.ErrNotFound
	}
	return s.snapshot(id), nil
}

func (s *Store) CreateProduct(_ context.Context, f core.ProductFields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byIdent[f.Identifier]; dup {
		return 0, fmt.Errorf("duplicate key: identifier %q already exists", f.Identifier)
	}
	s.nextProduct++
	id := s.nextProduct
	s.products[id] = &core.Product{
		ID:          id,
		Identifier:  f.Identifier,
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		UpdatedAt:   s.now(),
	}
	s.byIdent[f.Identifier] = id
	return id, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, f core.ProductFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Title = f.Title
	p.Description = f.Description
	p.Price = f.Price
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) ListProducts(_ context.Context, filter core.ProductFilter) ([]core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		if s.matches(id, filter) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]core.Product, len(ids))
	for i, id := range ids {
		out[i] = s.snapshot(id)
	}
	return out, nil
}

// matches applies IN within an attribute and AND across attributes.
func (s *Store) matches(id int64, filter core.ProductFilter) bool {
	for attr, want := range filter.Terms {
		if len(want) == 0 {
			continue
		}
		have := s.assigned[id][attr]
		hit := false
		for _, t := range want {
			if slices.Contains(have, t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// snapshot copies a product with its assigned terms. Caller holds the lock.
func (s *Store) snapshot(id int64) core.Product {
	p := *s.products[id]
	p.Attributes = make(map[string][]core.Term)
	for attr, termIDs := range s.assigned[id] {
		for _, tid := range termIDs {
			p.Attributes[attr] = append(p.Attributes[attr], s.terms[tid])
		}
	}
	return p
}

func (s *Store) FindTermByName(_ context.Context, attribute, name string) (core.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.termByName[termKey(attribute, name)]
	if !ok {
		return core.Term{}, core.ErrNotFound
	}
	return s.terms[id], nil
}

func (s *Store) CreateTerm(_ context.Context, attribute, name, slug string) (core.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.termByName[termKey(attribute, name)]; ok {
		return core.Term{}, core.ErrTermExists
	}
	s.nextTerm++
	t := core.Term{ID: s.nextTerm, AttributeKey: attribute, Name: name, Slug: s.uniqueSlug(attribute, slug)}
	s.terms[t.ID] = t
	s.termByName[termKey(attribute, name)] = t.ID
	return t, nil
}

// uniqueSlug suffixes -2, -3, ... when another term of the attribute has the slug.
func (s *Store) uniqueSlug(attribute, slug string) string {
	taken := func(candidate string) bool {
		for _, t := range s.terms {
			if t.AttributeKey == attribute && t.Slug == candidate {
				return true
			}
		}
		return false
	}
	candidate := slug
	for n := 2; taken(candidate); n++ {
		candidate = slug + "-" + strconv.Itoa(n)
	}
	return candidate
}

func (s *Store) AssignTerms(_ context.Context, productID int64, attribute string, termIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return core.ErrNotFound
	}
	for _, tid := range termIDs {
		if _, ok := s.terms[tid]; !ok {
			return core.ErrNotFound
		}
	}
	if s.assigned[productID] == nil {
		s.assigned[productID] = make(map[string][]int64)
	}
	s.assigned[productID][attribute] = slices.Clone(termIDs)
	return nil
}

func (s *Store) ListTerms(_ context.Context, attribute string) ([]core.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Term
	for _, t := range s.terms {
		if t.AttributeKey == attribute {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CustomAttributes(context.Context) ([]core.AttributeDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.custom), nil
}

func (s *Store) SaveCustomAttributes(_ context.Context, defs []core.AttributeDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = slices.Clone(defs)
	return nil
}

func (s *Store) Settings(context.Context) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

// Purge drops terms, assignments, custom attributes and settings. Products stay.
func (s *Store) Purge(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terms = make(map[int64]core.Term)
	s.termByName = make(map[string]int64)
	s.assigned = make(map[int64]map[string][]int64)
	s.custom = nil
	s.settings = core.Settings{}
	return nil
}

func (s *Store) Close() error { return nil }
