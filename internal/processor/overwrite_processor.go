package processor

import (
	"bytes"
	"context"
	"errors"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/metadata"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/naming"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

// OverwriteProcessor replaces the uploaded blob with a PNG thumbnail and merges
// the blob URL into the product record named by the blob.
type OverwriteProcessor struct {
	generator  *thumbnail.Generator
	storage    storage.Storage
	store      metadata.Store
	publisher  pubsub.Publisher // optional
	container  string
	strictKeys bool
}

// NewOverwriteProcessor constructs an OverwriteProcessor.
// With strictKeys the blob name is validated before any write; otherwise the
// record key is split positionally after the upload, as the handler always did.
func NewOverwriteProcessor(
	generator *thumbnail.Generator,
	dst storage.Storage,
	store metadata.Store,
	publisher pubsub.Publisher,
	container string,
	strictKeys bool,
) (*OverwriteProcessor, error) {
	if store == nil {
		return nil, errors.New("overwrite processor requires a metadata store")
	}
	return &OverwriteProcessor{
		generator:  generator,
		storage:    dst,
		store:      store,
		publisher:  publisher,
		container:  container,
		strictKeys: strictKeys,
	}, nil
}

// Variant implements Processor.
func (p *OverwriteProcessor) Variant() Variant { return VariantOverwrite }

// Process resizes, overwrites, merges metadata and notifies.
func (p *OverwriteProcessor) Process(ctx context.Context, inv *Invocation) (*Result, error) {
	l := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldVariant, string(VariantOverwrite)).
		Str(pkglog.FieldBlob, inv.Name).
		Logger()
	ctx = pkglog.WithLogger(ctx, l)

	res := &Result{Variant: VariantOverwrite, Source: inv.Name, Stage: StageTriggered}

	// A derived JPEG thumbnail shares the trigger path but is not a product image.
	if isDerivedOutput(p.generator, inv) {
		res.Skipped = true
		res.Stage = StageDone
		l.Info().Msg("blob is a derived thumbnail, skipped")
		return res, nil
	}

	// 1. Validate the record key up front so a bad name never overwrites the blob.
	var key naming.ProductKey
	if p.strictKeys {
		k, err := naming.Parse(inv.Name)
		if err != nil {
			res.fail(KindKeyParse, err)
			return failed(l, res)
		}
		key = k
	}

	// 2-3. Create the thumbnail and overwrite the original blob. A blob that is
	// already a box-sized PNG is our own earlier write: rewriting it would only
	// fire the trigger again, so it stays as is and the merge still runs.
	var thumb *thumbnail.Thumbnail
	if p.generator.IsThumbnail(inv.Data, thumbnail.FormatPNG) {
		res.Skipped = true
		res.Stage = StageUploaded
		res.ContentType = thumbnail.FormatPNG.ContentType()
		res.Size = len(inv.Data)
	} else {
		var err error
		thumb, err = p.generator.Generate(inv.Data, thumbnail.FormatPNG)
		if err != nil {
			res.fail(generateKind(err), err)
			return failed(l, res)
		}
		res.Stage = StageResized

		if err := p.storage.Write(ctx, inv.Name, bytes.NewReader(thumb.Data), int64(thumb.Len()), thumb.ContentType); err != nil {
			res.fail(KindUpload, err)
			return failed(l, res)
		}
		res.Stage = StageUploaded
		res.ContentType = thumb.ContentType
		res.Size = thumb.Len()
	}
	res.Output = inv.Name
	res.URL = p.storage.ObjectURL(inv.Name)

	// 4. Merge the blob URL into the product record.
	if !p.strictKeys {
		key = naming.SplitPositional(inv.Name)
	}
	res.PartitionKey = key.SellerID
	res.RowKey = key.ProductID

	recordKey := metadata.Key{PartitionKey: key.SellerID, RowKey: key.ProductID}
	if err := p.store.Merge(ctx, recordKey, map[string]string{metadata.FieldImageURL: res.URL}); err != nil {
		res.fail(KindMetadata, err)
		return failed(l, res)
	}
	res.Stage = StageMetadataMerged

	if thumb != nil {
		notifyCreated(ctx, p.publisher, p.containerFor(inv), res, thumb)
	}
	res.Stage = StageDone

	l.Info().
		Str(pkglog.FieldPartitionKey, res.PartitionKey).
		Str(pkglog.FieldRowKey, res.RowKey).
		Int(pkglog.FieldSize, res.Size).
		Bool("skipped", res.Skipped).
		Msg("thumbnail created and metadata updated")
	return res, nil
}

func (p *OverwriteProcessor) containerFor(inv *Invocation) string {
	if inv.Container != "" {
		return inv.Container
	}
	return p.container
}
