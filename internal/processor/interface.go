package processor

import "context"

// Variant names a thumbnail pipeline.
type Variant string

const (
	// VariantOverwrite replaces the source blob with a PNG thumbnail and merges its URL into metadata.
	VariantOverwrite Variant = "overwrite"
	// VariantDerived writes a JPEG thumbnail next to the source under a ".jpg" name.
	VariantDerived Variant = "derived"
)

// Invocation is one storage trigger firing: the object's name and raw bytes.
type Invocation struct {
	Container string
	Name      string
	Data      []byte
}

// Processor runs a thumbnail pipeline for a single invocation.
// A non-nil error is always a *Failure; the Result is returned in both cases.
type Processor interface {
	Variant() Variant
	Process(ctx context.Context, inv *Invocation) (*Result, error)
}
