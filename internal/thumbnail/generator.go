// Package thumbnail resizes raw images into fixed-size thumbnails.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"regexp"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the WebP decoder used by imaging.Decode
)

const (
	DefaultWidth       = 200
	DefaultHeight      = 200
	DefaultJPEGQuality = 80
)

var (
	// ErrDecode is returned when the payload is not a decodable raster image.
	ErrDecode = errors.New("decode image")
	// ErrEncode is returned when the resized image cannot be encoded.
	ErrEncode = errors.New("encode image")
)

// Format is the output encoding of a thumbnail.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
)

// ContentType returns the MIME type written alongside the encoded thumbnail.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) String() string {
	if f == FormatJPEG {
		return "jpeg"
	}
	return "png"
}

// Config holds the thumbnail box and encoder settings.
type Config struct {
	Width       int `mapstructure:"width"`
	Height      int `mapstructure:"height"`
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// Thumbnail is an encoded, resized image.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Format      Format
	Width       int
	Height      int
}

// Len returns the encoded size in bytes.
func (t *Thumbnail) Len() int {
	return len(t.Data)
}

// Generator produces thumbnails. It holds no mutable state and is safe for concurrent use.
type Generator struct {
	width       int
	height      int
	jpegQuality int
}

// NewGenerator builds a Generator, filling zero values with the 200×200 / q80 defaults.
func NewGenerator(cfg Config) *Generator {
	g := &Generator{width: cfg.Width, height: cfg.Height, jpegQuality: cfg.JPEGQuality}
	if g.width <= 0 {
		g.width = DefaultWidth
	}
	if g.height <= 0 {
		g.height = DefaultHeight
	}
	if g.jpegQuality <= 0 || g.jpegQuality > 100 {
		g.jpegQuality = DefaultJPEGQuality
	}
	return g
}

// Generate decodes data (format auto-detected), crops it to cover the thumbnail box
// around the centre and encodes it in the requested format.
func (g *Generator) Generate(data []byte, format Format) (*Thumbnail, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := imaging.Fill(img, g.width, g.height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(g.jpegQuality))
	default:
		err = imaging.Encode(&buf, resized, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return &Thumbnail{
		Data:        buf.Bytes(),
		ContentType: format.ContentType(),
		Format:      format,
		Width:       g.width,
		Height:      g.height,
	}, nil
}

// IsThumbnail reports whether data is already encoded in format at exactly the
// thumbnail box. Only the image header is read.
func (g *Generator) IsThumbnail(data []byte, format Format) bool {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return name == format.String() && cfg.Width == g.width && cfg.Height == g.height
}

// trailingExt matches a final ".ext" that is not followed by a path separator.
var trailingExt = regexp.MustCompile(`\.[^/.]+$`)

// DeriveName replaces the trailing extension of name with ext.
// Names without an extension are returned unchanged.
func DeriveName(name, ext string) string {
	return trailingExt.ReplaceAllLiteralString(name, ext)
}

// JPEGName is DeriveName with ".jpg".
func JPEGName(name string) string {
	return DeriveName(name, ".jpg")
}
