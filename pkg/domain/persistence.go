package domain

import "context"

// ModelCatalog persists the inputs of a summary: models, solutions and
// variability results. Implementations return deep copies and wrap missing
// entries in NotFoundError.
type ModelCatalog interface {
	SaveModel(ctx context.Context, model Model) error
	Model(ctx context.Context, id string) (Model, error)
	ModelIDs(ctx context.Context) ([]string, error)
	SaveSolution(ctx context.Context, modelID, name string, solution Solution) error
	Solution(ctx context.Context, modelID, name string) (Solution, error)
	SaveVariability(ctx context.Context, modelID, name string, result VariabilityResult) error
	Variability(ctx context.Context, modelID, name string) (VariabilityResult, error)
	Close() error
}

// Catalog entity labels used in NotFoundError.
const (
	EntityModel       = "model"
	EntitySolution    = "solution"
	EntityVariability = "variability"
	EntityMetabolite  = "metabolite"
	EntityReaction    = "reaction"
)
