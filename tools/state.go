package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JovanVeljanoski/ateam/state"
)

type StateSetArgs struct {
	Key   string `json:"key" jsonschema:"description=State key" validate:"required"`
	Value string `json:"value" jsonschema:"description=Value to store; JSON text is stored decoded"`
}

type StateGetArgs struct {
	Key string `json:"key" jsonschema:"description=State key" validate:"required"`
}

type StateKeysArgs struct{}

// StateSet lets the model write to the agent's shared state.
func StateSet() *Func[StateSetArgs] {
	return MustFunc("state_set", "Store a value in the shared state under a key.",
		func(ctx context.Context, st *state.Shared, args StateSetArgs) (any, error) {
			if st == nil {
				return nil, errNoState
			}
			var v any = args.Value
			var decoded any
			if err := json.Unmarshal([]byte(args.Value), &decoded); err == nil {
				v = decoded
			}
			if err := st.Set(ctx, args.Key, v); err != nil {
				return nil, err
			}
			return "ok", nil
		})
}

// StateGet lets the model read the agent's shared state.
func StateGet() *Func[StateGetArgs] {
	return MustFunc("state_get", "Read the value stored in the shared state under a key.",
		func(ctx context.Context, st *state.Shared, args StateGetArgs) (any, error) {
			if st == nil {
				return nil, errNoState
			}
			v, err := st.Get(ctx, args.Key)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", args.Key, err)
			}
			return v, nil
		})
}

// StateKeys lists the keys of the agent's shared state.
func StateKeys() *Func[StateKeysArgs] {
	return MustFunc("state_keys", "List the keys present in the shared state.",
		func(ctx context.Context, st *state.Shared, _ StateKeysArgs) (any, error) {
			if st == nil {
				return nil, errNoState
			}
			return st.Keys(ctx)
		})
}

var errNoState = errors.New("no shared state attached to this call")
