package redis

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Hash field names shared by element and recipe hashes.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldEmoji      = "emoji"
	fieldCreatedAt  = "created_at"
	fieldElementA   = "element_a"
	fieldElementB   = "element_b"
	fieldResult     = "result"
	fieldDiscoverer = "discoverer"
)

func elementToHash(e *types.Element) map[string]any {
	return map[string]any{
		fieldID:        e.ElementID,
		fieldName:      e.Name,
		fieldEmoji:     e.Emoji,
		fieldCreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
	}
}

func hashToElement(h map[string]string) (*types.Element, error) {
	if h[fieldID] == "" || h[fieldName] == "" {
		return nil, types.ErrInvalidData
	}
	created, err := time.Parse(time.RFC3339Nano, h[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", types.ErrInvalidData, err)
	}
	return &types.Element{
		ElementID: h[fieldID],
		Name:      h[fieldName],
		Emoji:     h[fieldEmoji],
		CreatedAt: created,
	}, nil
}

// recipeToHash stores element references by ID only.
func recipeToHash(r *types.Recipe) map[string]any {
	return map[string]any{
		fieldID:         r.RecipeID,
		fieldElementA:   r.ElementA.ElementID,
		fieldElementB:   r.ElementB.ElementID,
		fieldResult:     r.Result.ElementID,
		fieldDiscoverer: r.Discoverer,
		fieldCreatedAt:  r.CreatedAt.Format(time.RFC3339Nano),
	}
}

// hashToRecipe decodes the scalar fields; the caller fills in the elements.
func hashToRecipe(h map[string]string) (*types.Recipe, error) {
	if h[fieldID] == "" || h[fieldElementA] == "" || h[fieldElementB] == "" || h[fieldResult] == "" {
		return nil, types.ErrInvalidData
	}
	created, err := time.Parse(time.RFC3339Nano, h[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", types.ErrInvalidData, err)
	}
	return &types.Recipe{
		RecipeID:   h[fieldID],
		Discoverer: h[fieldDiscoverer],
		CreatedAt:  created,
	}, nil
}
