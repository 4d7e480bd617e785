package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// TablesConfig holds Azure Table Storage configuration.
type TablesConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	TableName        string `mapstructure:"table_name"`
}

// entityUpdater is the subset of *aztables.Client used by TablesStore.
type entityUpdater interface {
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
}

// TablesStore implements Store on Azure Table Storage.
type TablesStore struct {
	client entityUpdater
}

// NewTablesStore creates a table client from the connection string.
func NewTablesStore(cfg TablesConfig) (*TablesStore, error) {
	if cfg.TableName == "" {
		return nil, errors.New("table name is required")
	}

	svc, err := aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}

	return &TablesStore{client: svc.NewClient(cfg.TableName)}, nil
}

// Merge issues an UpdateEntity in merge mode. Without an ETag the service
// matches any version, and fails with 404 when the entity is absent.
func (s *TablesStore) Merge(ctx context.Context, key Key, fields map[string]string) error {
	entity := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entity[k] = v
	}
	entity["PartitionKey"] = key.PartitionKey
	entity["RowKey"] = key.RowKey

	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	_, err = s.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, key.PartitionKey, key.RowKey)
		}
		return fmt.Errorf("failed to merge entity: %w", err)
	}

	return nil
}

// Close is a no-op; the table client holds no connections of its own.
func (s *TablesStore) Close() error { return nil }
