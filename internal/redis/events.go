package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// discoveryBuffer is the capacity of the channel returned by Discoveries.
const discoveryBuffer = 16

// elementEvent and recipeEvent are the JSON payloads published on the
// discoveries channel.
type elementEvent struct {
	ElementID string    `json:"element_id"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type recipeEvent struct {
	RecipeID   string       `json:"recipe_id"`
	ElementA   elementEvent `json:"element_a"`
	ElementB   elementEvent `json:"element_b"`
	Result     elementEvent `json:"result"`
	Discoverer string       `json:"discoverer"`
	CreatedAt  time.Time    `json:"created_at"`
}

func toElementEvent(e types.Element) elementEvent {
	return elementEvent{ElementID: e.ElementID, Name: e.Name, Emoji: e.Emoji, CreatedAt: e.CreatedAt}
}

func (e elementEvent) element() types.Element {
	return types.Element{ElementID: e.ElementID, Name: e.Name, Emoji: e.Emoji, CreatedAt: e.CreatedAt}
}

func toRecipeEvent(r *types.Recipe) recipeEvent {
	return recipeEvent{
		RecipeID:   r.RecipeID,
		ElementA:   toElementEvent(r.ElementA),
		ElementB:   toElementEvent(r.ElementB),
		Result:     toElementEvent(r.Result),
		Discoverer: r.Discoverer,
		CreatedAt:  r.CreatedAt,
	}
}

func (e recipeEvent) recipe() *types.Recipe {
	return &types.Recipe{
		RecipeID:   e.RecipeID,
		ElementA:   e.ElementA.element(),
		ElementB:   e.ElementB.element(),
		Result:     e.Result.element(),
		Discoverer: e.Discoverer,
		CreatedAt:  e.CreatedAt,
	}
}

// publish announces committed recipes. Publishing is best effort: the
// recipes are already stored and watchers can fall back to ListRecipes.
func (s *Store) publish(ctx context.Context, recipes []*types.Recipe) {
	channel := DiscoveriesChannel(s.namespace)
	for _, r := range recipes {
		payload, err := json.Marshal(toRecipeEvent(r))
		if err != nil {
			continue
		}
		s.rdb.Publish(ctx, channel, payload)
	}
}

// Discoveries subscribes to recipes created by any process sharing the
// namespace. The returned channel closes when ctx is done or the
// subscription drops. Malformed payloads are skipped.
func (s *Store) Discoveries(ctx context.Context) (<-chan *types.Recipe, error) {
	s.mu.RLock()
	if !s.attached {
		s.mu.RUnlock()
		return nil, types.ErrStoreDetached
	}
	rdb, channel := s.rdb, DiscoveriesChannel(s.namespace)
	s.mu.RUnlock()

	pubsub := rdb.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed so no discovery published
	// after this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	out := make(chan *types.Recipe, discoveryBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev recipeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev.recipe():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
