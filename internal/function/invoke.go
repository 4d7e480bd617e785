package function

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultBlobBinding is the trigger binding name used in function.json.
const DefaultBlobBinding = "blob"

// InvokeRequest is the body the Functions host posts to a custom handler.
type InvokeRequest struct {
	Data     map[string]json.RawMessage `json:"Data"`
	Metadata map[string]json.RawMessage `json:"Metadata"`
}

var (
	errNoData = errors.New("invocation has no trigger data")
	errNoName = errors.New("invocation metadata has no blob name")
)

// BlobName returns Metadata.name.
func (r *InvokeRequest) BlobName() (string, error) {
	raw, ok := r.Metadata["name"]
	if !ok {
		return "", errNoName
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("invalid blob name: %w", err)
	}
	if name == "" {
		return "", errNoName
	}
	return name, nil
}

// BlobData returns the decoded bytes of the trigger binding. When binding is
// absent and Data holds a single entry, that entry is used.
func (r *InvokeRequest) BlobData(binding string) ([]byte, error) {
	raw, ok := r.Data[binding]
	if !ok {
		switch len(r.Data) {
		case 0:
			return nil, errNoData
		case 1:
			for _, v := range r.Data {
				raw = v
			}
		default:
			return nil, fmt.Errorf("binding %q not found in trigger data", binding)
		}
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("trigger data is not a string: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("trigger data is not base64: %w", err)
	}
	return data, nil
}
