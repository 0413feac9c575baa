package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
)

// RecipeApplicationService handles recipe CRUD
type RecipeApplicationService struct {
	repo   domain.RecipeRepository
	logger *logging.Logger
}

// NewRecipeApplicationService creates a new RecipeApplicationService
func NewRecipeApplicationService(repo domain.RecipeRepository, logger *logging.Logger) *RecipeApplicationService {
	return &RecipeApplicationService{
		repo:   repo,
		logger: logger.WithComponent("recipes"),
	}
}

// CreateRecipe normalizes the document into the canonical ingredient list and stores it
func (s *RecipeApplicationService) CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error) {
	recipe, err := domain.NormalizeRecipeDocument(cmd.Document)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.Name == "" {
		return nil, errors.ErrValidationWithFields("validation failed", map[string]string{"name": "is required"})
	}

	now := time.Now().UTC()
	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	if err := s.repo.Save(ctx, &recipe); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save recipe", "name", recipe.Name, "error", err)
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	s.logger.InfoContext(ctx, "Created recipe", "id", recipe.ID, "name", recipe.Name, "ingredients", len(recipe.Ingredients))
	return ToRecipeDTO(&recipe), nil
}

// GetRecipe retrieves a recipe by id
func (s *RecipeApplicationService) GetRecipe(ctx context.Context, id string) (*RecipeDTO, error) {
	recipe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get recipe", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, errors.ErrNotFoundWithID("recipe", id)
	}
	return ToRecipeDTO(recipe), nil
}

// ListRecipes returns all recipes
func (s *RecipeApplicationService) ListRecipes(ctx context.Context) ([]RecipeDTO, error) {
	recipes, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list recipes", "error", err)
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	out := make([]RecipeDTO, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, *ToRecipeDTO(r))
	}
	return out, nil
}

// DeleteRecipe removes a recipe
func (s *RecipeApplicationService) DeleteRecipe(ctx context.Context, id string) error {
	recipe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return errors.ErrNotFoundWithID("recipe", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete recipe", "id", id, "error", err)
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	s.logger.InfoContext(ctx, "Deleted recipe", "id", id)
	return nil
}
