package processor

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
)

// Stage is the last step an invocation completed.
type Stage string

const (
	StageTriggered      Stage = "triggered"
	StageResized        Stage = "resized"
	StageUploaded       Stage = "uploaded"
	StageMetadataMerged Stage = "metadata-merged"
	StageDone           Stage = "done"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	KindKeyParse Kind = "key_parse"
	KindFetch    Kind = "fetch"
	KindDecode   Kind = "decode"
	KindEncode   Kind = "encode"
	KindUpload   Kind = "upload"
	KindMetadata Kind = "metadata"
)

// Failure is the typed error returned by processors.
type Failure struct {
	Kind  Kind
	Stage Stage // last stage completed before the failure
	Name  string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed after %s for %q: %v", f.Kind, f.Stage, f.Name, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result records how far an invocation got and what it produced.
type Result struct {
	Variant      Variant  `json:"variant"`
	Source       string   `json:"source"`
	Stage        Stage    `json:"stage"`
	Output       string   `json:"output,omitempty"`
	URL          string   `json:"url,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	Size         int      `json:"size,omitempty"`
	PartitionKey string   `json:"partition_key,omitempty"`
	RowKey       string   `json:"row_key,omitempty"`
	Skipped      bool     `json:"skipped,omitempty"` // input was already a thumbnail; nothing written
	Failure      *Failure `json:"-"`
}

// OK reports whether the invocation completed.
func (r *Result) OK() bool {
	return r.Failure == nil && r.Stage == StageDone
}

// fail records a failure at the current stage.
func (r *Result) fail(kind Kind, err error) {
	r.Failure = &Failure{Kind: kind, Stage: r.Stage, Name: r.Source, Err: err}
}

// generateKind maps a generator error onto a failure kind.
func generateKind(err error) Kind {
	if errors.Is(err, thumbnail.ErrEncode) {
		return KindEncode
	}
	return KindDecode
}

// failed logs the failure recorded on res and returns it.
func failed(l zerolog.Logger, res *Result) (*Result, error) {
	f := res.Failure
	l.Error().
		Err(f.Err).
		Str(pkglog.FieldKind, string(f.Kind)).
		Str(pkglog.FieldStage, string(f.Stage)).
		Msg("failed to process blob")
	return res, f
}
