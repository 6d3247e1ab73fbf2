package game

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// EncodeState serializes state into the versioned store blob.
func EncodeState(state *State) ([]byte, error) {
	if state.Version == 0 {
		state.Version = StateVersion
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// DecodeState parses a blob written by EncodeState.
func DecodeState(blob []byte) (*State, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if state.Version != StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrStateVersion, state.Version)
	}
	return &state, nil
}
