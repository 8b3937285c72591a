package codec

import (
	"bytes"
	"image/color"
	stdjpeg "image/jpeg"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// JPEGDecoder handles TIFF Compression code 7, via the standard library's
// image/jpeg. JPEG is an image-level codec: it reconstructs pixels itself,
// so its output is already-unpacked DecodedPixels and the TIFF predictor is
// never applied to it.
type JPEGDecoder struct{}

func (JPEGDecoder) Decode(raw []byte, meta DecoderMetadata) (Result, error) {
	jpegData := stitchJPEGTables(raw, meta.JPEGTables)

	img, err := stdjpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return Result{}, cogerr.Wrap(cogerr.InvalidTiff, err, "decoding JPEG tile")
	}

	spp := meta.SamplesPerPixel
	if spp <= 0 {
		spp = 1
	}
	w := meta.TileWidth
	h := meta.TileHeight
	if w == 0 || h == 0 {
		b := img.Bounds()
		w, h = b.Dx(), b.Dy()
	}

	data := make([]byte, w*h*spp)
	bounds := img.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := (y*w + x) * spp
			px := x + bounds.Min.X
			py := y + bounds.Min.Y
			if px >= bounds.Max.X || py >= bounds.Max.Y {
				continue
			}
			switch spp {
			case 1:
				g := color.GrayModel.Convert(img.At(px, py)).(color.Gray)
				data[idx] = g.Y
			default:
				r, g, b, _ := img.At(px, py).RGBA()
				data[idx] = byte(r >> 8)
				if spp > 1 {
					data[idx+1] = byte(g >> 8)
				}
				if spp > 2 {
					data[idx+2] = byte(b >> 8)
				}
			}
		}
	}

	return Result{Pixels: &DecodedPixels{Width: w, Height: h, Data: data}}, nil
}

// stitchJPEGTables prepends a TIFF JPEGTables segment (which carries the
// quantization/Huffman tables some encoders factor out of every tile) to a
// tile's own JPEG stream, stripping the table segment's trailing EOI and
// the tile's leading SOI so the two concatenate into one valid stream.
func stitchJPEGTables(data, tables []byte) []byte {
	if len(tables) == 0 {
		return data
	}
	if len(tables) >= 2 && tables[len(tables)-2] == 0xFF && tables[len(tables)-1] == 0xD9 {
		tables = tables[:len(tables)-2]
	}
	tileData := data
	if len(tileData) >= 2 && tileData[0] == 0xFF && tileData[1] == 0xD8 {
		tileData = tileData[2:]
	}
	out := make([]byte, len(tables)+len(tileData))
	copy(out, tables)
	copy(out[len(tables):], tileData)
	return out
}
