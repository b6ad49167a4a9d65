package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ops implements types.Tx against a querier.
type ops struct {
	q querier
}

const selectElement = "SELECT element_id, name, emoji, created_at FROM elements"

// selectRecipe joins each recipe with its three elements.
const selectRecipe = `SELECT r.recipe_id, r.discoverer, r.created_at,
    ea.element_id, ea.name, ea.emoji, ea.created_at,
    eb.element_id, eb.name, eb.emoji, eb.created_at,
    er.element_id, er.name, er.emoji, er.created_at
FROM recipes r
JOIN elements ea ON ea.element_id = r.element_a_id
JOIN elements eb ON eb.element_id = r.element_b_id
JOIN elements er ON er.element_id = r.result_id`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (o *ops) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	row := o.q.QueryRowContext(ctx, selectElement+" WHERE name_key = ?", types.NameKey(name))
	e, err := hydrateElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting element %q: %w", name, err)
	}
	return e, nil
}

func (o *ops) CreateElement(ctx context.Context, name, emoji string) (*types.Element, error) {
	if err := types.ValidateElementName(name); err != nil {
		return nil, err
	}
	if emoji == "" {
		return nil, types.ErrInvalidData
	}

	e := &types.Element{
		ElementID: newUUID(),
		Name:      types.NormalizeElementName(name),
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	_, err := o.q.ExecContext(ctx,
		"INSERT INTO elements (element_id, name, name_key, emoji, created_at) VALUES (?, ?, ?, ?, ?)",
		e.ElementID, e.Name, e.Key(), e.Emoji, e.CreatedAt.Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return nil, types.ErrDuplicateName
	}
	if err != nil {
		return nil, fmt.Errorf("inserting element: %w", err)
	}
	return e, nil
}

func (o *ops) FindRecipeByPair(ctx context.Context, idA, idB string) (*types.Recipe, error) {
	a, b := types.SortPair(idA, idB)
	row := o.q.QueryRowContext(ctx, selectRecipe+" WHERE r.element_a_id = ? AND r.element_b_id = ?", a, b)
	r, err := hydrateRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}
	return r, nil
}

func (o *ops) CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	for _, id := range []string{idA, idB, resultID} {
		var one int
		err := o.q.QueryRowContext(ctx, "SELECT 1 FROM elements WHERE element_id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("checking element %s: %w", id, err)
		}
	}

	a, b := types.SortPair(idA, idB)
	_, err := o.q.ExecContext(ctx,
		"INSERT INTO recipes (recipe_id, element_a_id, element_b_id, result_id, discoverer, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		newUUID(), a, b, resultID, discoverer, time.Now().UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return nil, types.ErrDuplicatePair
	}
	if err != nil {
		return nil, fmt.Errorf("inserting recipe: %w", err)
	}
	return o.FindRecipeByPair(ctx, a, b)
}

func (o *ops) listElements(ctx context.Context) ([]*types.Element, error) {
	rows, err := o.q.QueryContext(ctx, selectElement+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("listing elements: %w", err)
	}
	defer rows.Close()

	var out []*types.Element
	for rows.Next() {
		e, err := hydrateElement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning element: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (o *ops) listRecipes(ctx context.Context) ([]*types.Recipe, error) {
	rows, err := o.q.QueryContext(ctx, selectRecipe+" ORDER BY r.rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	defer rows.Close()

	var out []*types.Recipe
	for rows.Next() {
		r, err := hydrateRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func hydrateElement(row scanner) (*types.Element, error) {
	var e types.Element
	var createdAt string
	if err := row.Scan(&e.ElementID, &e.Name, &e.Emoji, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing element created_at: %w", err)
	}
	e.CreatedAt = t
	return &e, nil
}

func hydrateRecipe(row scanner) (*types.Recipe, error) {
	var r types.Recipe
	var createdAt, aCreated, bCreated, resCreated string
	err := row.Scan(
		&r.RecipeID, &r.Discoverer, &createdAt,
		&r.ElementA.ElementID, &r.ElementA.Name, &r.ElementA.Emoji, &aCreated,
		&r.ElementB.ElementID, &r.ElementB.Name, &r.ElementB.Emoji, &bCreated,
		&r.Result.ElementID, &r.Result.Name, &r.Result.Emoji, &resCreated,
	)
	if err != nil {
		return nil, err
	}
	for _, ts := range []struct {
		raw string
		dst *time.Time
	}{
		{createdAt, &r.CreatedAt},
		{aCreated, &r.ElementA.CreatedAt},
		{bCreated, &r.ElementB.CreatedAt},
		{resCreated, &r.Result.CreatedAt},
	} {
		t, err := time.Parse(timeLayout, ts.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing recipe timestamp: %w", err)
		}
		*ts.dst = t
	}
	return &r, nil
}

// isUniqueViolation reports whether err is an SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
