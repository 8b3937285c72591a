// Package codec implements the pluggable tile-decoder registry used by
// internal/cog to turn a TIFF Compression-tagged byte range into either raw
// (pre-predictor) sample bytes or fully decoded pixels.
package codec

import (
	"fmt"
	"sync"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// DecoderMetadata carries the per-IFD fields a Decoder needs to make sense
// of a compressed tile's bytes: how samples are packed and interpreted.
type DecoderMetadata struct {
	SampleFormat    []uint16
	BitsPerSample   []uint16
	SamplesPerPixel int
	PlanarConfig    uint16
	TileWidth       int
	TileHeight      int

	// JPEGTables carries the shared quantization/Huffman table segment
	// (TIFF tag 347) some JPEG-compressed TIFFs factor out of every tile.
	JPEGTables []byte
}

// DecodedPixels holds fully unpacked pixel samples, already in the byte
// layout downstream RasterArray construction expects (row-major,
// BitsPerSample/SampleFormat encoding, PlanarConfig-respecting band order).
// Codecs that operate at the image level rather than the byte level (JPEG,
// LERC) produce this instead of raw bytes, and the predictor is skipped for
// their output — there is no meaningful "horizontal difference" left to
// undo once a codec has already reconstructed pixels itself.
type DecodedPixels struct {
	Width, Height int
	Data          []byte
}

// Result is a Decoder's output: either Raw bytes that the TIFF predictor
// still needs to run over, or already-unpacked Pixels.
type Result struct {
	Raw    []byte
	Pixels *DecodedPixels
}

// Decoder turns compressed tile bytes into a Result.
type Decoder interface {
	Decode(raw []byte, meta DecoderMetadata) (Result, error)
}

// Registry maps a TIFF Compression code to a Decoder factory. Factories are
// called lazily so a codec with setup cost (none of the built-ins have any
// today) doesn't pay it until first use.
type Registry struct {
	mu        sync.Mutex
	factories map[int]func() Decoder
	instances map[int]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[int]func() Decoder),
		instances: make(map[int]Decoder),
	}
}

// Register installs the factory for the given TIFF Compression code,
// overwriting any previous registration.
func (r *Registry) Register(compression int, factory func() Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[compression] = factory
	delete(r.instances, compression)
}

// Decoder returns the Decoder for the given compression code, constructing
// and caching it on first use. Unregistered codes fail UnsupportedCompression.
func (r *Registry) Decoder(compression int) (Decoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.instances[compression]; ok {
		return d, nil
	}
	factory, ok := r.factories[compression]
	if !ok {
		return nil, cogerr.New(cogerr.UnsupportedCompression, fmt.Sprintf("unsupported compression code %d", compression), cogerr.KV{Key: "compression", Value: compression})
	}
	d := factory()
	r.instances[compression] = d
	return d, nil
}

var defaultOnce sync.Once
var defaultRegistry *Registry

// Default returns the process-wide registry of built-in decoders: None,
// Deflate, LZW, JPEG and LERC. It is constructed once and is read-only
// after that, matching the "no global mutable state beyond the codec
// registry" requirement this package serves.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.Register(1, func() Decoder { return NoneDecoder{} })
		defaultRegistry.Register(8, func() Decoder { return DeflateDecoder{} })
		defaultRegistry.Register(32946, func() Decoder { return DeflateDecoder{} })
		defaultRegistry.Register(5, func() Decoder { return LZWDecoder{} })
		defaultRegistry.Register(7, func() Decoder { return JPEGDecoder{} })
		defaultRegistry.Register(34887, func() Decoder { return LERCDecoder{} })
	})
	return defaultRegistry
}
