// Package memory provides the in-memory model catalog. The SQL drivers embed
// it and persist each accepted entry before applying it.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fluxcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ModelCatalog = (*Store)(nil)

// Entry is one catalog record as persisted by the SQL drivers. Keys take the
// form model/<id>, solution/<model>/<name> or variability/<model>/<name>.
type Entry struct {
	Key     string
	Payload []byte
}

// Key prefixes for catalog entries.
const (
	prefixModel       = domain.EntityModel + "/"
	prefixSolution    = domain.EntitySolution + "/"
	prefixVariability = domain.EntityVariability + "/"
)

// ModelKey returns the entry key of a model.
func ModelKey(id string) string { return prefixModel + id }

// SolutionKey returns the entry key of a named solution.
func SolutionKey(modelID, name string) string { return prefixSolution + modelID + "/" + name }

// VariabilityKey returns the entry key of a named variability result.
func VariabilityKey(modelID, name string) string { return prefixVariability + modelID + "/" + name }

type named struct {
	modelID string
	name    string
}

// Store keeps catalog entries in maps guarded by a RWMutex and hands out deep
// copies.
type Store struct {
	mu          sync.RWMutex
	models      map[string]domain.Model
	solutions   map[named]domain.Solution
	variability map[named]domain.VariabilityResult
}

// NewStore returns an empty catalog.
func NewStore() *Store {
	return &Store{
		models:      make(map[string]domain.Model),
		solutions:   make(map[named]domain.Solution),
		variability: make(map[named]domain.VariabilityResult),
	}
}

// PrepareModel validates the model and encodes its entry without storing it.
func (s *Store) PrepareModel(model domain.Model) (Entry, error) {
	if err := model.Validate(); err != nil {
		return Entry{}, err
	}
	return encode(ModelKey(model.ID), model)
}

// PrepareSolution checks that the model exists and encodes the solution entry.
func (s *Store) PrepareSolution(modelID, name string, sol domain.Solution) (Entry, error) {
	if err := s.checkNamed(modelID, name); err != nil {
		return Entry{}, err
	}
	if sol.Status == "" {
		return Entry{}, domain.InputError{Field: "solution.status", Reason: "required"}
	}
	return encode(SolutionKey(modelID, name), sol)
}

// PrepareVariability checks that the model exists and encodes the result entry.
func (s *Store) PrepareVariability(modelID, name string, res domain.VariabilityResult) (Entry, error) {
	if err := s.checkNamed(modelID, name); err != nil {
		return Entry{}, err
	}
	if res.FractionOfOptimum <= 0 || res.FractionOfOptimum > 1 {
		return Entry{}, domain.InputError{Field: "fraction_of_optimum", Reason: fmt.Sprintf("%g outside (0, 1]", res.FractionOfOptimum)}
	}
	return encode(VariabilityKey(modelID, name), res)
}

func (s *Store) checkNamed(modelID, name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return domain.InputError{Field: "name", Reason: "must be non-empty and contain no '/'"}
	}
	s.mu.RLock()
	_, ok := s.models[modelID]
	s.mu.RUnlock()
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityModel, ID: modelID}
	}
	return nil
}

func encode(key string, v any) (Entry, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Entry{Key: key, Payload: payload}, nil
}

// Apply decodes an entry and stores it, replacing any entry with the same key.
// Apply performs no reference checks so entries can be hydrated in any order.
func (s *Store) Apply(e Entry) error {
	switch {
	case strings.HasPrefix(e.Key, prefixModel):
		var model domain.Model
		if err := json.Unmarshal(e.Payload, &model); err != nil {
			return fmt.Errorf("decode %s: %w", e.Key, err)
		}
		s.mu.Lock()
		s.models[model.ID] = model
		s.mu.Unlock()
	case strings.HasPrefix(e.Key, prefixSolution):
		key, err := parseNamed(e.Key, prefixSolution)
		if err != nil {
			return err
		}
		var sol domain.Solution
		if err := json.Unmarshal(e.Payload, &sol); err != nil {
			return fmt.Errorf("decode %s: %w", e.Key, err)
		}
		s.mu.Lock()
		s.solutions[key] = sol
		s.mu.Unlock()
	case strings.HasPrefix(e.Key, prefixVariability):
		key, err := parseNamed(e.Key, prefixVariability)
		if err != nil {
			return err
		}
		var res domain.VariabilityResult
		if err := json.Unmarshal(e.Payload, &res); err != nil {
			return fmt.Errorf("decode %s: %w", e.Key, err)
		}
		s.mu.Lock()
		s.variability[key] = res
		s.mu.Unlock()
	default:
		return fmt.Errorf("unknown catalog entry %q", e.Key)
	}
	return nil
}

// parseNamed splits <prefix><model>/<name>; the name never contains a slash.
func parseNamed(key, prefix string) (named, error) {
	rest := strings.TrimPrefix(key, prefix)
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return named{}, fmt.Errorf("malformed catalog key %q", key)
	}
	return named{modelID: rest[:i], name: rest[i+1:]}, nil
}

// SaveModel stores a deep copy of the model.
func (s *Store) SaveModel(_ context.Context, model domain.Model) error {
	e, err := s.PrepareModel(model)
	if err != nil {
		return err
	}
	return s.Apply(e)
}

// SaveSolution stores a named solution for an existing model.
func (s *Store) SaveSolution(_ context.Context, modelID, name string, sol domain.Solution) error {
	e, err := s.PrepareSolution(modelID, name, sol)
	if err != nil {
		return err
	}
	return s.Apply(e)
}

// SaveVariability stores a named variability result for an existing model.
func (s *Store) SaveVariability(_ context.Context, modelID, name string, res domain.VariabilityResult) error {
	e, err := s.PrepareVariability(modelID, name, res)
	if err != nil {
		return err
	}
	return s.Apply(e)
}

func (s *Store) Model(_ context.Context, id string) (domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	model, ok := s.models[id]
	if !ok {
		return domain.Model{}, domain.NotFoundError{Entity: domain.EntityModel, ID: id}
	}
	return model.Clone(), nil
}

// ModelIDs lists stored models in identifier order.
func (s *Store) ModelIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Solution(_ context.Context, modelID, name string) (domain.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.solutions[named{modelID, name}]
	if !ok {
		return domain.Solution{}, domain.NotFoundError{Entity: domain.EntitySolution, ID: modelID + "/" + name}
	}
	return sol.Clone(), nil
}

func (s *Store) Variability(_ context.Context, modelID, name string) (domain.VariabilityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.variability[named{modelID, name}]
	if !ok {
		return domain.VariabilityResult{}, domain.NotFoundError{Entity: domain.EntityVariability, ID: modelID + "/" + name}
	}
	return res.Clone(), nil
}

// Keys lists every entry key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.models)+len(s.solutions)+len(s.variability))
	for id := range s.models {
		keys = append(keys, ModelKey(id))
	}
	for k := range s.solutions {
		keys = append(keys, SolutionKey(k.modelID, k.name))
	}
	for k := range s.variability {
		keys = append(keys, VariabilityKey(k.modelID, k.name))
	}
	sort.Strings(keys)
	return keys
}

// Close is a no-op for the in-memory catalog.
func (s *Store) Close() error { return nil }
