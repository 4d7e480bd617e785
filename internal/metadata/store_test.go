package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/database"
)

var (
	_ Store = (*TablesStore)(nil)
	_ Store = (*GormStore)(nil)
	_ Store = (*RedisStore)(nil)
)

type fakeTableClient struct {
	entities [][]byte
	options  []*aztables.UpdateEntityOptions
	err      error
}

func (f *fakeTableClient) UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	f.entities = append(f.entities, entity)
	f.options = append(f.options, options)
	return aztables.UpdateEntityResponse{}, f.err
}

func TestTablesStore_MergeSendsMergeEntity(t *testing.T) {
	fake := &fakeTableClient{}
	store := &TablesStore{client: fake}

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: "123"},
		map[string]string{FieldImageURL: "https://acct.blob.core.windows.net/photos/abc-123.png"})
	require.NoError(t, err)

	require.Len(t, fake.entities, 1)
	var entity map[string]string
	require.NoError(t, json.Unmarshal(fake.entities[0], &entity))
	assert.Equal(t, map[string]string{
		"PartitionKey": "abc",
		"RowKey":       "123",
		"ImageUrl":     "https://acct.blob.core.windows.net/photos/abc-123.png",
	}, entity)
	assert.Equal(t, aztables.UpdateModeMerge, fake.options[0].UpdateMode)
	assert.Nil(t, fake.options[0].IfMatch)
}

func TestTablesStore_NotFound(t *testing.T) {
	fake := &fakeTableClient{err: &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}}
	store := &TablesStore{client: fake}

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: "999"}, map[string]string{FieldImageURL: "u"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTablesStore_OtherError(t *testing.T) {
	fake := &fakeTableClient{err: errors.New("connection reset")}
	store := &TablesStore{client: fake}

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: "123"}, map[string]string{FieldImageURL: "u"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
}

func TestNewTablesStore_RequiresTableName(t *testing.T) {
	_, err := NewTablesStore(TablesConfig{ConnectionString: "UseDevelopmentStorage=true"})
	assert.Error(t, err)
}

func TestNewTablesStore_FromConnectionString(t *testing.T) {
	conn := "DefaultEndpointsProtocol=https;AccountName=thumbsdev;AccountKey=ZmFrZWtleWZvcnRlc3Rpbmc=;EndpointSuffix=core.windows.net"

	store, err := NewTablesStore(TablesConfig{ConnectionString: conn, TableName: "Products"})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.IsType(t, &aztables.Client{}, store.client)
	assert.NoError(t, store.Close())
}

func TestNewTablesStore_BadConnectionString(t *testing.T) {
	_, err := NewTablesStore(TablesConfig{ConnectionString: "not-a-connection-string", TableName: "Products"})
	assert.Error(t, err)
}

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: "file::memory:", MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &ProductImageModel{}))
	t.Cleanup(func() { _ = NewGormStore(db).Close() })
	return NewGormStore(db)
}

func TestGormStore_MergeUpdatesExistingRow(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()
	require.NoError(t, store.db.Create(&ProductImageModel{PartitionKey: "abc", RowKey: "123", ImageURL: "old"}).Error)

	err := store.Merge(ctx, Key{PartitionKey: "abc", RowKey: "123"}, map[string]string{FieldImageURL: "new"})
	require.NoError(t, err)

	var row ProductImageModel
	require.NoError(t, store.db.First(&row, "partition_key = ? AND row_key = ?", "abc", "123").Error)
	assert.Equal(t, "new", row.ImageURL)
}

func TestGormStore_MergeMissingRow(t *testing.T) {
	store := newTestGormStore(t)

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: ""}, map[string]string{FieldImageURL: "new"})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	var count int64
	require.NoError(t, store.db.Model(&ProductImageModel{}).Count(&count).Error)
	assert.Zero(t, count, "merge must not create records")
}

func TestGormStore_UnknownField(t *testing.T) {
	store := newTestGormStore(t)

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: "123"}, map[string]string{"Price": "10"})
	assert.ErrorContains(t, err, "unknown metadata field")
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_MergeExisting(t *testing.T) {
	store, mr := newTestRedisStore(t)
	key := Key{PartitionKey: "abc", RowKey: "123"}
	mr.HSet(store.BuildKey(key), "Name", "Blue mug", FieldImageURL, "old")

	require.NoError(t, store.Merge(context.Background(), key, map[string]string{FieldImageURL: "new"}))

	assert.Equal(t, "new", mr.HGet("product:abc:123", FieldImageURL))
	assert.Equal(t, "Blue mug", mr.HGet("product:abc:123", "Name"))
}

func TestRedisStore_MergeMissing(t *testing.T) {
	store, mr := newTestRedisStore(t)

	err := store.Merge(context.Background(), Key{PartitionKey: "abc", RowKey: "404"}, map[string]string{FieldImageURL: "new"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.False(t, mr.Exists("product:abc:404"))
}

func TestRedisStore_NoFields(t *testing.T) {
	store, _ := newTestRedisStore(t)
	assert.NoError(t, store.Merge(context.Background(), Key{PartitionKey: "a", RowKey: "b"}, nil))
}
