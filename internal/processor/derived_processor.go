package processor

import (
	"bytes"
	"context"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

// DerivedProcessor writes a JPEG thumbnail under the source name with its
// extension replaced by ".jpg". The source blob is left untouched unless it
// already had that name.
type DerivedProcessor struct {
	generator *thumbnail.Generator
	storage   storage.Storage
	publisher pubsub.Publisher // optional
	container string
}

// NewDerivedProcessor constructs a DerivedProcessor.
func NewDerivedProcessor(
	generator *thumbnail.Generator,
	dst storage.Storage,
	publisher pubsub.Publisher,
	container string,
) *DerivedProcessor {
	return &DerivedProcessor{
		generator: generator,
		storage:   dst,
		publisher: publisher,
		container: container,
	}
}

// Variant implements Processor.
func (p *DerivedProcessor) Variant() Variant { return VariantDerived }

// Process resizes to JPEG and uploads under the derived name.
func (p *DerivedProcessor) Process(ctx context.Context, inv *Invocation) (*Result, error) {
	l := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldVariant, string(VariantDerived)).
		Str(pkglog.FieldBlob, inv.Name).
		Logger()
	ctx = pkglog.WithLogger(ctx, l)

	l.Info().Msg("blob trigger fired")
	res := &Result{Variant: VariantDerived, Source: inv.Name, Stage: StageTriggered}

	// Our own output fires the trigger again; it is left alone.
	if isDerivedOutput(p.generator, inv) {
		res.Skipped = true
		res.Stage = StageDone
		res.Output = inv.Name
		l.Info().Msg("blob is already a derived thumbnail, skipped")
		return res, nil
	}

	thumb, err := p.generator.Generate(inv.Data, thumbnail.FormatJPEG)
	if err != nil {
		res.fail(generateKind(err), err)
		return failed(l, res)
	}
	res.Stage = StageResized

	outName := thumbnail.JPEGName(inv.Name)
	if err := p.storage.Write(ctx, outName, bytes.NewReader(thumb.Data), int64(thumb.Len()), thumb.ContentType); err != nil {
		res.fail(KindUpload, err)
		return failed(l, res)
	}
	res.Stage = StageUploaded
	res.Output = outName
	res.URL = p.storage.ObjectURL(outName)
	res.ContentType = thumb.ContentType
	res.Size = thumb.Len()

	container := inv.Container
	if container == "" {
		container = p.container
	}
	notifyCreated(ctx, p.publisher, container, res, thumb)
	res.Stage = StageDone

	l.Info().
		Str(pkglog.FieldThumbnail, outName).
		Int(pkglog.FieldSize, res.Size).
		Msg("thumbnail created")
	return res, nil
}

// isDerivedOutput reports whether inv is what DerivedProcessor writes: a
// box-sized JPEG already stored under its own ".jpg" name.
func isDerivedOutput(g *thumbnail.Generator, inv *Invocation) bool {
	return thumbnail.JPEGName(inv.Name) == inv.Name && g.IsThumbnail(inv.Data, thumbnail.FormatJPEG)
}
