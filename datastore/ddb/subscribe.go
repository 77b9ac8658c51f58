/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"fmt"
	"slices"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// Subscribe registers fn for event. Callbacks run synchronously, in
// registration order, after the store accepted the mutation.
func (e *Entity) Subscribe(event storagemodels.EventType, fn func(storagemodels.Event[schema.Item])) error {
	if !event.Valid() {
		return fmt.Errorf("%w: %q", errors.ErrInvalidEvent, event)
	}
	if fn == nil {
		return errors.NewValidationError("callback", "callback is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers[event] = append(e.subscribers[event], fn)
	return nil
}

func (e *Entity) hasSubscribers(event storagemodels.EventType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[event]) > 0
}

func (e *Entity) notify(ev storagemodels.Event[schema.Item]) {
	e.mu.RLock()
	subs := slices.Clone(e.subscribers[ev.Type])
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
