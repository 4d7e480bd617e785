package function

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/metadata"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/processor"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStore struct {
	keys []metadata.Key
}

func (s *memStore) Merge(ctx context.Context, key metadata.Key, fields map[string]string) error {
	s.keys = append(s.keys, key)
	return nil
}

func (s *memStore) Close() error { return nil }

type fixture struct {
	server *Server
	blobs  *storage.MemoryStorage
	store  *memStore
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	blobs := storage.NewMemoryStorage("https://thumbsdev.blob.core.windows.net/userphotos")
	store := &memStore{}
	gen := thumbnail.NewGenerator(thumbnail.Config{})

	overwrite, err := processor.NewOverwriteProcessor(gen, blobs, store, nil, "userphotos", true)
	require.NoError(t, err)
	derived := processor.NewDerivedProcessor(gen, blobs, nil, "userphotos")

	h := NewHandler(map[string]processor.Processor{
		"ProcessUserPhoto": overwrite,
		"process-image":    derived,
	}, "userphotos", cfg)

	return &fixture{
		server: NewServer(cfg, zerolog.Nop(), h),
		blobs:  blobs,
		store:  store,
	}
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for x := 0; x < 120; x++ {
		img.Set(x, x%80, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func invokeBody(t *testing.T, binding, data, name string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"Data":     map[string]string{binding: data},
		"Metadata": map[string]string{"name": name},
	})
	require.NoError(t, err)
	return body
}

func (f *fixture) post(path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Azure-Functions-InvocationId", "inv-1")
	f.server.Engine().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Outputs     map[string]interface{} `json:"Outputs"`
	Logs        []string               `json:"Logs"`
	ReturnValue map[string]interface{} `json:"ReturnValue"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestInvoke_ProcessUserPhoto(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.post("/ProcessUserPhoto", invokeBody(t, "blob", pngBase64(t), "abc-123.png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "inv-1", w.Header().Get("X-Request-ID"))

	env := decodeEnvelope(t, w)
	assert.NotNil(t, env.Outputs)
	assert.Equal(t, "overwrite", env.ReturnValue["variant"])
	assert.Equal(t, "done", env.ReturnValue["stage"])
	require.Len(t, env.Logs, 1)
	assert.Contains(t, env.Logs[0], "abc")

	obj, ok := f.blobs.Get("abc-123.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []metadata.Key{{PartitionKey: "abc", RowKey: "123"}}, f.store.keys)
}

func TestInvoke_ProcessImage(t *testing.T) {
	f := newFixture(t, Config{InvocationTimeout: time.Minute})

	w := f.post("/process-image", invokeBody(t, "blob", pngBase64(t), "foo.png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.Equal(t, "foo.jpg", env.ReturnValue["output"])
	_, ok := f.blobs.Get("foo.jpg")
	assert.True(t, ok)
}

func TestInvoke_SingleDataEntryUsedWhateverItsName(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.post("/process-image", invokeBody(t, "myBlob", pngBase64(t), "foo.png"))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestInvoke_ProcessingFailureIs500(t *testing.T) {
	f := newFixture(t, Config{})

	corrupt := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))
	w := f.post("/ProcessUserPhoto", invokeBody(t, "blob", corrupt, "abc-123.png"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, "decode", env.ReturnValue["code"])
	assert.Equal(t, "triggered", env.ReturnValue["stage"])
	assert.Equal(t, 0, f.blobs.Writes())
	assert.Empty(t, f.store.keys)
}

func TestInvoke_KeyParseFailureIs500(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.post("/ProcessUserPhoto", invokeBody(t, "blob", pngBase64(t), "onlyonepart.png"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "key_parse", decodeEnvelope(t, w).ReturnValue["code"])
	assert.Equal(t, 0, f.blobs.Writes())
}

func TestInvoke_MalformedRequests(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{")},
		{"missing name", []byte(`{"Data":{"blob":"aGk="},"Metadata":{}}`)},
		{"missing data", []byte(`{"Data":{},"Metadata":{"name":"a-b.png"}}`)},
		{"ambiguous data", []byte(`{"Data":{"a":"aGk=","b":"aGk="},"Metadata":{"name":"a-b.png"}}`)},
		{"data not base64", invokeBody(t, "blob", "***", "a-b.png")},
		{"data not string", []byte(`{"Data":{"blob":42},"Metadata":{"name":"a-b.png"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.post("/process-image", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, 0, f.blobs.Writes())
}

func TestInvoke_UnknownFunction(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.post("/Nope", invokeBody(t, "blob", pngBase64(t), "foo.png"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Config{})

	w := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
