package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"fluxcore/pkg/domain"
)

// ContentTypeJSON is recorded on documents written by PutDocument.
const ContentTypeJSON = "application/json"

// DecodeModel reads a model document and validates it.
func DecodeModel(r io.Reader) (domain.Model, error) {
	var model domain.Model
	if err := decode(r, &model); err != nil {
		return domain.Model{}, err
	}
	if err := model.Validate(); err != nil {
		return domain.Model{}, err
	}
	return model, nil
}

// DecodeSolution reads a solution document. A missing status is treated as
// optimal, matching solver exports that only record fluxes.
func DecodeSolution(r io.Reader) (domain.Solution, error) {
	var sol domain.Solution
	if err := decode(r, &sol); err != nil {
		return domain.Solution{}, err
	}
	if sol.Status == "" {
		sol.Status = domain.StatusOptimal
	}
	if sol.Fluxes == nil {
		return domain.Solution{}, domain.InputError{Field: "fluxes", Reason: "required"}
	}
	return sol, nil
}

// DecodeVariability reads a variability document.
func DecodeVariability(r io.Reader) (domain.VariabilityResult, error) {
	var res domain.VariabilityResult
	if err := decode(r, &res); err != nil {
		return domain.VariabilityResult{}, err
	}
	if math.IsNaN(res.FractionOfOptimum) || res.FractionOfOptimum <= 0 || res.FractionOfOptimum > 1 {
		return domain.VariabilityResult{}, domain.InputError{Field: "fraction_of_optimum", Reason: fmt.Sprintf("%g outside (0, 1]", res.FractionOfOptimum)}
	}
	for id, rng := range res.Ranges {
		if rng.Minimum > rng.Maximum {
			return domain.VariabilityResult{}, domain.InputError{Field: "ranges", Reason: fmt.Sprintf("reaction %s has minimum above maximum", id)}
		}
	}
	return res, nil
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return domain.InputError{Field: "document", Reason: err.Error()}
	}
	return nil
}

// LoadModel fetches and decodes the model document at key.
func LoadModel(ctx context.Context, store Store, key string) (domain.Model, error) {
	var model domain.Model
	err := load(ctx, store, key, func(r io.Reader) (err error) {
		model, err = DecodeModel(r)
		return err
	})
	return model, err
}

// LoadSolution fetches and decodes the solution document at key.
func LoadSolution(ctx context.Context, store Store, key string) (domain.Solution, error) {
	var sol domain.Solution
	err := load(ctx, store, key, func(r io.Reader) (err error) {
		sol, err = DecodeSolution(r)
		return err
	})
	return sol, err
}

// LoadVariability fetches and decodes the variability document at key.
func LoadVariability(ctx context.Context, store Store, key string) (domain.VariabilityResult, error) {
	var res domain.VariabilityResult
	err := load(ctx, store, key, func(r io.Reader) (err error) {
		res, err = DecodeVariability(r)
		return err
	})
	return res, err
}

func load(ctx context.Context, store Store, key string, fn func(io.Reader) error) error {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	if err := fn(rc); err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}

// PutDocument encodes v as JSON and stores it at key.
func PutDocument(ctx context.Context, store Store, key string, v any) (Info, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, bytes.NewReader(payload), PutOptions{ContentType: ContentTypeJSON})
}
