package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/logging"
	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
)

const recipesCollection = "recipes"

// RecipeRepository stores recipes in their canonical shape and reads any of
// the legacy document shapes.
type RecipeRepository struct {
	collection *pkgmongo.InstrumentedCollection
	logger     *logging.Logger
}

// NewRecipeRepository creates a new RecipeRepository
func NewRecipeRepository(client *pkgmongo.InstrumentedClient, logger *logging.Logger) *RecipeRepository {
	return &RecipeRepository{
		collection: client.Collection(recipesCollection),
		logger:     logger.WithComponent("recipe-repository"),
	}
}

// EnsureIndexes creates the recipe indexes
func (r *RecipeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("idx_name")},
	})
	if err != nil {
		return fmt.Errorf("failed to create recipe indexes: %w", err)
	}
	return nil
}

// Save upserts recipe in the canonical shape
func (r *RecipeRepository) Save(ctx context.Context, recipe *domain.Recipe) error {
	_, err := r.collection.ReplaceOne(ctx, r.idFilter(recipe.ID), recipe, options.Replace().SetUpsert(true))
	return err
}

// FindByID returns the recipe with id, or nil
func (r *RecipeRepository) FindByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var doc bson.M
	err := r.collection.FindOne(ctx, r.idFilter(id)).Decode(&doc)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	recipe, err := decodeRecipe(doc)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", id, err)
	}
	return recipe, nil
}

// FindAll returns every readable recipe ordered by name. Documents in an
// unrecognized shape are logged and left out.
func (r *RecipeRepository) FindAll(ctx context.Context) ([]*domain.Recipe, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(pkgmongo.SortAscending("name")))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	recipes := make([]*domain.Recipe, 0, len(docs))
	for _, doc := range docs {
		recipe, err := decodeRecipe(doc)
		if err != nil {
			r.logger.Warn("Skipping unreadable recipe document", "id", fmt.Sprint(doc["_id"]), "error", err)
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// Delete removes a recipe
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, r.idFilter(id))
	return err
}

// idFilter matches string ids and, for hex ids, legacy ObjectID keys
func (r *RecipeRepository) idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// decodeRecipe normalizes a raw recipe document of any accepted shape
func decodeRecipe(doc bson.M) (*domain.Recipe, error) {
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		doc["_id"] = oid.Hex()
	}

	recipe, err := domain.NormalizeRecipeDocument(doc)
	if err != nil {
		return nil, err
	}
	recipe.CreatedAt = asTime(doc["createdAt"])
	recipe.UpdatedAt = asTime(doc["updatedAt"])
	return &recipe, nil
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}
