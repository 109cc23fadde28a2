package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"fluxcore/pkg/domain"
)

func toyModel() domain.Model {
	return domain.Model{
		ID: "toy",
		Metabolites: []domain.Metabolite{
			{ID: "glc_c", Name: "Glucose"},
			{ID: "atp_c", Name: "ATP"},
		},
		Reactions: []domain.Reaction{
			{ID: "EX_glc", Metabolites: map[string]float64{"glc_c": 1}, LowerBound: -10, UpperBound: 1000},
			{ID: "ATPM", Metabolites: map[string]float64{"atp_c": -1}, LowerBound: 0, UpperBound: 1000},
		},
	}
}

func TestStoreModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	model := toyModel()
	if err := store.SaveModel(ctx, model); err != nil {
		t.Fatalf("save model: %v", err)
	}
	got, err := store.Model(ctx, "toy")
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if !reflect.DeepEqual(got, model) {
		t.Fatalf("model mismatch: %+v", got)
	}
	got.Reactions[0].Metabolites["glc_c"] = 99
	again, _ := store.Model(ctx, "toy")
	if again.Reactions[0].Metabolites["glc_c"] != 1 {
		t.Fatalf("expected stored model to be isolated from callers")
	}
	model.Reactions[1].Metabolites["atp_c"] = 5
	again, _ = store.Model(ctx, "toy")
	if again.Reactions[1].Metabolites["atp_c"] != -1 {
		t.Fatalf("expected stored model to be isolated from the saved value")
	}
}

func TestStoreRejectsInvalidModel(t *testing.T) {
	store := NewStore()
	err := store.SaveModel(context.Background(), domain.Model{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected nothing stored, got %v", store.Keys())
	}
}

func TestStoreNamedEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sol := domain.Solution{Status: domain.StatusOptimal, ObjectiveValue: 1, Fluxes: map[string]float64{"EX_glc": -10}}
	if err := store.SaveSolution(ctx, "toy", "fba", sol); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing model error, got %v", err)
	}
	if err := store.SaveModel(ctx, toyModel()); err != nil {
		t.Fatalf("save model: %v", err)
	}
	if err := store.SaveSolution(ctx, "toy", "fba", sol); err != nil {
		t.Fatalf("save solution: %v", err)
	}
	if err := store.SaveSolution(ctx, "toy", "a/b", sol); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected slash in name rejected, got %v", err)
	}
	if err := store.SaveSolution(ctx, "toy", "", sol); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty name rejected, got %v", err)
	}
	res := domain.VariabilityResult{FractionOfOptimum: 0.9, Ranges: map[string]domain.FluxRange{"EX_glc": {Minimum: -10, Maximum: -8}}}
	if err := store.SaveVariability(ctx, "toy", "fva90", res); err != nil {
		t.Fatalf("save variability: %v", err)
	}
	if err := store.SaveVariability(ctx, "toy", "bad", domain.VariabilityResult{FractionOfOptimum: 1.5}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected fraction rejected, got %v", err)
	}

	gotSol, err := store.Solution(ctx, "toy", "fba")
	if err != nil || !reflect.DeepEqual(gotSol, sol) {
		t.Fatalf("solution mismatch: %+v %v", gotSol, err)
	}
	gotRes, err := store.Variability(ctx, "toy", "fva90")
	if err != nil || !reflect.DeepEqual(gotRes, res) {
		t.Fatalf("variability mismatch: %+v %v", gotRes, err)
	}
	if _, err := store.Solution(ctx, "toy", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Variability(ctx, "other", "fva90"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	want := []string{"model/toy", "solution/toy/fba", "variability/toy/fva90"}
	if got := store.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

func TestStoreApplyHydratesInAnyOrder(t *testing.T) {
	source := NewStore()
	ctx := context.Background()
	model := toyModel()
	modelEntry, err := source.PrepareModel(model)
	if err != nil {
		t.Fatalf("prepare model: %v", err)
	}
	if len(source.Keys()) != 0 {
		t.Fatalf("prepare must not store")
	}
	if err := source.Apply(modelEntry); err != nil {
		t.Fatalf("apply: %v", err)
	}
	solEntry, err := source.PrepareSolution("toy", "fba", domain.Solution{Status: domain.StatusOptimal, Fluxes: map[string]float64{"ATPM": 2}})
	if err != nil {
		t.Fatalf("prepare solution: %v", err)
	}
	if solEntry.Key != SolutionKey("toy", "fba") {
		t.Fatalf("unexpected key %q", solEntry.Key)
	}

	target := NewStore()
	if err := target.Apply(solEntry); err != nil {
		t.Fatalf("apply solution before model: %v", err)
	}
	if err := target.Apply(modelEntry); err != nil {
		t.Fatalf("apply model: %v", err)
	}
	ids, _ := target.ModelIDs(ctx)
	if !reflect.DeepEqual(ids, []string{"toy"}) {
		t.Fatalf("unexpected ids %v", ids)
	}
	sol, err := target.Solution(ctx, "toy", "fba")
	if err != nil || sol.Fluxes["ATPM"] != 2 {
		t.Fatalf("unexpected solution %+v %v", sol, err)
	}
}

func TestStoreApplyRejectsMalformedEntries(t *testing.T) {
	store := NewStore()
	cases := []Entry{
		{Key: "reaction/x", Payload: []byte(`{}`)},
		{Key: "solution/only", Payload: []byte(`{}`)},
		{Key: "variability/toy/", Payload: []byte(`{}`)},
		{Key: "model/toy", Payload: []byte(`not json`)},
	}
	for _, e := range cases {
		if err := store.Apply(e); err == nil {
			t.Fatalf("expected error for %q", e.Key)
		}
	}
}

func TestStoreModelIDsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		model := toyModel()
		model.ID = id
		if err := store.SaveModel(ctx, model); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	ids, err := store.ModelIDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("unexpected order %v", ids)
	}
	if _, err := store.Model(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
