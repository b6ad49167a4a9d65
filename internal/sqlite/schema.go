package sqlite

// Schema DDL. Statements are idempotent so Attach can run them on every start.
const (
	createElements = `CREATE TABLE IF NOT EXISTS elements (
    element_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    name_key TEXT NOT NULL UNIQUE,
    emoji TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createRecipes = `CREATE TABLE IF NOT EXISTS recipes (
    recipe_id TEXT PRIMARY KEY,
    element_a_id TEXT NOT NULL,
    element_b_id TEXT NOT NULL,
    result_id TEXT NOT NULL,
    discoverer TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (element_a_id, element_b_id),
    CHECK (element_a_id <= element_b_id),
    FOREIGN KEY (element_a_id) REFERENCES elements(element_id),
    FOREIGN KEY (element_b_id) REFERENCES elements(element_id),
    FOREIGN KEY (result_id) REFERENCES elements(element_id)
);`
)

// Index DDL for common queries.
const (
	idxRecipesResult  = `CREATE INDEX IF NOT EXISTS idx_recipes_result ON recipes(result_id);`
	idxRecipesCreated = `CREATE INDEX IF NOT EXISTS idx_recipes_created ON recipes(created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createElements,
	createRecipes,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxRecipesResult,
	idxRecipesCreated,
}
