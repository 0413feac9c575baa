package domain

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Ingredient is one line of a recipe, in the ingredient's primary unit per unit produced
type Ingredient struct {
	Name       string  `bson:"name" json:"name"`
	QtyPerUnit float64 `bson:"qtyPerUnit" json:"qtyPerUnit"`
}

// Recipe is a named ingredient list. Recipes carry no stock state.
type Recipe struct {
	ID          string       `bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	SubCategory string       `bson:"subCategory,omitempty" json:"subCategory,omitempty"`
	Ingredients []Ingredient `bson:"ingredients" json:"ingredients"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the ingredient list
func (r Recipe) Validate() error {
	if len(r.Ingredients) == 0 {
		return ErrEmptyRecipe
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("%w: ingredient name is required", ErrEmptyRecipe)
		}
		if math.IsNaN(ing.QtyPerUnit) || math.IsInf(ing.QtyPerUnit, 0) {
			return fmt.Errorf("%w: ingredient %q", ErrInvalidQuantity, ing.Name)
		}
		if ing.QtyPerUnit < 0 {
			return fmt.Errorf("%w: ingredient %q", ErrNegativeQuantity, ing.Name)
		}
	}
	return nil
}

// NormalizeRecipeDocument reads a recipe document in any of the stored
// shapes and returns the canonical recipe. Accepted shapes:
//
//	{"ingredients": [{"name": "Flour", "qty": 2}]}      (qtyPerUnit is also accepted)
//	{"ingredients": {"Flour": 2, "Sugar": "0.5"}}       (sorted by name)
//	{"items": [{"ingredientValues": {"Flour": 2}}]}     (first item only)
//
// Quantities that are not numbers become zero.
func NormalizeRecipeDocument(doc map[string]any) (Recipe, error) {
	r := Recipe{
		ID:          stringField(doc, "_id", "id"),
		Name:        stringField(doc, "name"),
		SubCategory: stringField(doc, "subCategory"),
	}

	var ingredients []Ingredient
	if raw, ok := doc["ingredients"]; ok {
		if list, ok := asSlice(raw); ok {
			ingredients = ingredientsFromList(list)
		} else if m, ok := asMap(raw); ok {
			ingredients = ingredientsFromMap(m)
		} else {
			return r, ErrUnrecognizedRecipeShape
		}
	} else if raw, ok := doc["items"]; ok {
		list, ok := asSlice(raw)
		if !ok || len(list) == 0 {
			return r, ErrUnrecognizedRecipeShape
		}
		first, ok := asMap(list[0])
		if !ok {
			return r, ErrUnrecognizedRecipeShape
		}
		values, ok := asMap(first["ingredientValues"])
		if !ok {
			return r, ErrUnrecognizedRecipeShape
		}
		ingredients = ingredientsFromMap(values)
	} else {
		return r, ErrUnrecognizedRecipeShape
	}

	r.Ingredients = ingredients
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

func ingredientsFromList(list []any) []Ingredient {
	out := make([]Ingredient, 0, len(list))
	for _, raw := range list {
		m, ok := asMap(raw)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringField(m, "name"))
		if name == "" {
			continue
		}
		qty, ok := m["qtyPerUnit"]
		if !ok {
			qty = m["qty"]
		}
		out = append(out, Ingredient{Name: name, QtyPerUnit: QuantityOrZero(qty)})
	}
	return out
}

func ingredientsFromMap(m map[string]any) []Ingredient {
	names := make([]string, 0, len(m))
	for name := range m {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]Ingredient, 0, len(names))
	for _, name := range names {
		out = append(out, Ingredient{Name: strings.TrimSpace(name), QtyPerUnit: QuantityOrZero(m[name])})
	}
	return out
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			if s, ok := v.(fmt.Stringer); ok {
				return s.String()
			}
		}
	}
	return ""
}

// asMap accepts any string-keyed map type, including driver-specific named map types
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
