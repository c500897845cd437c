package mapper

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a JSON response DTO into a protobuf Struct so the operator service
// returns the same shape as the HTTP API.
func ToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return structpb.NewStruct(fields)
}
