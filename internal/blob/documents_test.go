package blob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fluxcore/pkg/domain"
)

const toyModelJSON = `{
  "id": "toy",
  "version": "1",
  "metabolites": [
    {"id": "glc__D_e", "name": "D-Glucose", "formula": "C6H12O6", "compartment": "e"},
    {"id": "glc__D_c", "name": "D-Glucose", "formula": "C6H12O6", "compartment": "c"}
  ],
  "reactions": [
    {"id": "EX_glc__D_e", "metabolites": {"glc__D_e": -1}, "lower_bound": -10, "upper_bound": 1000},
    {"id": "GLCpts", "metabolites": {"glc__D_e": -1, "glc__D_c": 1}, "lower_bound": 0, "upper_bound": 1000}
  ]
}`

func TestDecodeModelIgnoresUnknownFields(t *testing.T) {
	model, err := DecodeModel(strings.NewReader(toyModelJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Reaction{ID: "GLCpts", Metabolites: map[string]float64{"glc__D_e": -1, "glc__D_c": 1}, UpperBound: 1000}
	got, ok := model.Reaction("GLCpts")
	if !ok {
		t.Fatalf("reaction missing")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reaction mismatch (-want +got):\n%s", diff)
	}
	if model.NumericalTolerance() != domain.DefaultTolerance {
		t.Fatalf("expected default tolerance")
	}
}

func TestDecodeModelRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"syntax":             `{"id":`,
		"missing id":         `{"metabolites":[],"reactions":[]}`,
		"unknown metabolite": `{"id":"m","metabolites":[],"reactions":[{"id":"R","metabolites":{"x":1}}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeModel(strings.NewReader(doc)); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestDecodeSolutionDefaults(t *testing.T) {
	sol, err := DecodeSolution(strings.NewReader(`{"fluxes":{"GLCpts":10}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sol.IsOptimal() || sol.Fluxes["GLCpts"] != 10 {
		t.Fatalf("unexpected solution %+v", sol)
	}
	sol, err = DecodeSolution(strings.NewReader(`{"status":"infeasible","fluxes":{}}`))
	if err != nil || sol.IsOptimal() {
		t.Fatalf("expected infeasible solution to decode as-is: %+v %v", sol, err)
	}
	if _, err := DecodeSolution(strings.NewReader(`{"status":"optimal"}`)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected missing fluxes error, got %v", err)
	}
}

func TestDecodeVariabilityValidates(t *testing.T) {
	res, err := DecodeVariability(strings.NewReader(`{"fraction_of_optimum":0.9,"ranges":{"GLCpts":{"minimum":1,"maximum":2}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Ranges["GLCpts"].Maximum != 2 {
		t.Fatalf("unexpected ranges %+v", res)
	}
	for _, doc := range []string{
		`{"fraction_of_optimum":0,"ranges":{}}`,
		`{"fraction_of_optimum":1.2,"ranges":{}}`,
		`{"fraction_of_optimum":1,"ranges":{"R":{"minimum":3,"maximum":2}}}`,
	} {
		if _, err := DecodeVariability(strings.NewReader(doc)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %s, got %v", doc, err)
		}
	}
}

func TestLoadRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	model, err := DecodeModel(strings.NewReader(toyModelJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	info, err := PutDocument(ctx, store, "models/toy.json", model)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ContentType != ContentTypeJSON {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}
	loaded, err := LoadModel(ctx, store, "models/toy.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(model, loaded); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}

	if _, err := PutDocument(ctx, store, "solutions/toy/pfba.json", domain.Solution{Status: domain.StatusOptimal, Fluxes: map[string]float64{"GLCpts": 10}}); err != nil {
		t.Fatalf("put solution: %v", err)
	}
	if sol, err := LoadSolution(ctx, store, "solutions/toy/pfba.json"); err != nil || sol.Fluxes["GLCpts"] != 10 {
		t.Fatalf("load solution: %+v %v", sol, err)
	}
	if _, err := PutDocument(ctx, store, "variability/toy/fva.json", domain.VariabilityResult{FractionOfOptimum: 1, Ranges: map[string]domain.FluxRange{"GLCpts": {Minimum: 0, Maximum: 10}}}); err != nil {
		t.Fatalf("put variability: %v", err)
	}
	if res, err := LoadVariability(ctx, store, "variability/toy/fva.json"); err != nil || res.Ranges["GLCpts"].Maximum != 10 {
		t.Fatalf("load variability: %+v %v", res, err)
	}
	if _, err := LoadModel(ctx, store, "models/missing.json"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{Driver: DriverFilesystem, FSRoot: t.TempDir()})
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("fs driver: %v", err)
	}
	store, err = Open(ctx, Config{Driver: DriverMemory})
	if err != nil || store.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 driver without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
