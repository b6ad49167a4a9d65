package redis

import "fmt"

// Redis key pattern helpers
//
// Every key and channel is namespaced so several cauldron worlds can share a
// Redis server.
//
// Key pattern: cauldron:{namespace}:{entity}[:{id}]

// ElementKey returns the hash holding one element.
// Pattern: cauldron:{namespace}:element:{name_key}
func ElementKey(namespace, nameKey string) string {
	return fmt.Sprintf("cauldron:%s:element:%s", namespace, nameKey)
}

// ElementIDsKey returns the hash mapping element IDs to name keys.
// Pattern: cauldron:{namespace}:element_ids
func ElementIDsKey(namespace string) string {
	return fmt.Sprintf("cauldron:%s:element_ids", namespace)
}

// ElementsKey returns the list of name keys in creation order.
// Pattern: cauldron:{namespace}:elements
func ElementsKey(namespace string) string {
	return fmt.Sprintf("cauldron:%s:elements", namespace)
}

// RecipeKey returns the hash holding the recipe for a pair. The IDs must
// already be sorted with types.SortPair.
// Pattern: cauldron:{namespace}:recipe:{id_a}:{id_b}
func RecipeKey(namespace, idA, idB string) string {
	return fmt.Sprintf("cauldron:%s:recipe:%s:%s", namespace, idA, idB)
}

// RecipesKey returns the list of recipe keys, newest first.
// Pattern: cauldron:{namespace}:recipes
func RecipesKey(namespace string) string {
	return fmt.Sprintf("cauldron:%s:recipes", namespace)
}

// DiscoveriesChannel returns the Pub/Sub channel carrying new recipes as JSON.
// Pattern: cauldron:{namespace}:discoveries
func DiscoveriesChannel(namespace string) string {
	return fmt.Sprintf("cauldron:%s:discoveries", namespace)
}
