package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

func TestNoneDecoder(t *testing.T) {
	want := []byte{1, 2, 3, 4}
	got, err := NoneDecoder{}.Decode(want, DecoderMetadata{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Raw, want) {
		t.Errorf("got %v, want %v", got.Raw, want)
	}
}

func TestDeflateDecoderZlibWrapped(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	want := bytes.Repeat([]byte{7, 8, 9}, 50)
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	w.Close()

	got, err := DeflateDecoder{}.Decode(buf.Bytes(), DecoderMetadata{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Raw, want) {
		t.Errorf("mismatch after zlib round trip")
	}
}

func TestRegistryUnsupportedCompression(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Decoder(99999)
	if !cogerr.Is(err, cogerr.UnsupportedCompression) {
		t.Fatalf("expected UnsupportedCompression, got %v", err)
	}
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	reg := Default()
	for _, code := range []int{1, 5, 7, 8, 32946, 34887} {
		if _, err := reg.Decoder(code); err != nil {
			t.Errorf("Decoder(%d): %v", code, err)
		}
	}
}

// lzwEncode is a minimal TIFF-flavoured LZW encoder used only to build
// round-trip fixtures for TestLZWDecoder: it always emits literal codes
// with no table reuse, which is valid (if inefficient) TIFF LZW.
func lzwEncode(data []byte) []byte {
	var bits []int
	emit := func(code, width int) {
		for i := width - 1; i >= 0; i-- {
			bits = append(bits, (code>>i)&1)
		}
	}
	emit(lzwClearCode, 9)
	for _, b := range data {
		emit(int(b), 9)
	}
	emit(lzwEOICode, 9)

	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit == 1 {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func TestLZWDecoder(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog")
	encoded := lzwEncode(want)

	got, err := LZWDecoder{}.Decode(encoded, DecoderMetadata{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Raw, want) {
		t.Errorf("got %q, want %q", got.Raw, want)
	}
}

func TestLZWDecoderRejectsMissingClearCode(t *testing.T) {
	// A stream of all zero bits never starts with the clear code (256).
	_, err := LZWDecoder{}.Decode(make([]byte, 8), DecoderMetadata{})
	if err == nil {
		t.Fatal("expected an error for a stream without a leading clear code")
	}
}

func TestLERCDecoderRejectsBadKey(t *testing.T) {
	_, err := LERCDecoder{}.Decode([]byte("not lerc"), DecoderMetadata{})
	if !cogerr.Is(err, cogerr.UnsupportedTiffFeature) {
		t.Fatalf("expected UnsupportedTiffFeature, got %v", err)
	}
}

func TestLERCDecoderConstantBlock(t *testing.T) {
	buf := newLercBlobBuilder(2, 3, 4, 42.0, 42.0, 42.0)
	buf.writeMask(nil) // no mask section: all pixels valid
	buf.writeByte(lercBlockConstant)

	meta := DecoderMetadata{SampleFormat: []uint16{3}, BitsPerSample: []uint16{32}}
	got, err := LERCDecoder{}.Decode(buf.bytes(), meta)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Pixels == nil {
		t.Fatal("expected Pixels, got Raw")
	}
	if got.Pixels.Width != 4 || got.Pixels.Height != 3 {
		t.Errorf("got %dx%d, want 4x3", got.Pixels.Width, got.Pixels.Height)
	}
	if len(got.Pixels.Data) != 4*3*4 {
		t.Fatalf("got %d bytes, want %d", len(got.Pixels.Data), 4*3*4)
	}
}

// lercBlobBuilder assembles a minimal, self-consistent LERC2 blob for
// tests, matching the field order lercReader expects.
type lercBlobBuilder struct {
	buf bytes.Buffer
}

func newLercBlobBuilder(version int32, height, width int32, maxZError, zMin, zMax float64) *lercBlobBuilder {
	b := &lercBlobBuilder{}
	b.buf.Write(lerc2FileKey[:])
	b.writeInt32(version)
	if version >= 3 {
		b.writeUint32(0)
	}
	b.writeInt32(height)
	b.writeInt32(width)
	b.writeInt32(height * width)
	b.writeFloat64(maxZError)
	b.writeFloat64(zMin)
	b.writeFloat64(zMax)
	return b
}

func (b *lercBlobBuilder) writeInt32(v int32) { b.writeUint32(uint32(v)) }
func (b *lercBlobBuilder) writeUint32(v uint32) {
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], v)
	b.buf.Write(p[:])
}
func (b *lercBlobBuilder) writeFloat64(v float64) {
	var p [8]byte
	binary.LittleEndian.PutUint64(p[:], math.Float64bits(v))
	b.buf.Write(p[:])
}
func (b *lercBlobBuilder) writeByte(v byte) { b.buf.WriteByte(v) }
func (b *lercBlobBuilder) writeMask(_ []byte) {
	b.writeInt32(0) // no mask section: decoder treats all pixels as valid
}
func (b *lercBlobBuilder) bytes() []byte { return b.buf.Bytes() }
