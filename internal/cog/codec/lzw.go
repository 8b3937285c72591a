package codec

// TIFF-compatible LZW decoder.
//
// TIFF uses an LZW variant that differs from the GIF/PDF format handled by
// Go's compress/lzw package. The key difference is the "deferred increment"
// of code width: TIFF increments the width after emitting the code that
// fills the current width, while GIF increments it before. Go's
// compress/lzw implements the GIF variant, causing "invalid code" errors on
// TIFF LZW streams. This follows the TIFF 6.0 specification instead.

import (
	"io"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

const (
	lzwMaxWidth  = 12
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstCode = 258
)

type lzwEntry struct {
	prefix int  // index of prefix entry (-1 for single-byte entries)
	suffix byte // the byte added by this entry
	length int  // total length of the string
}

// LZWDecoder implements Decoder for TIFF Compression code 5.
type LZWDecoder struct{}

func (LZWDecoder) Decode(raw []byte, _ DecoderMetadata) (Result, error) {
	out, err := decompressTIFFLZW(raw)
	if err != nil {
		return Result{}, cogerr.Wrap(cogerr.InvalidTiff, err, "decompressing LZW tile")
	}
	return Result{Raw: out}, nil
}

// decompressTIFFLZW decompresses TIFF-style LZW data (MSB bit ordering).
func decompressTIFFLZW(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	d := &lzwBitReader{src: data}
	return d.decode()
}

type lzwBitReader struct {
	src    []byte
	bitPos int // current bit position in src
}

// readBits reads n bits from the source (MSB first).
func (d *lzwBitReader) readBits(n int) (int, error) {
	if n <= 0 || n > 16 {
		return 0, cogerr.New(cogerr.InvalidTiff, "lzw: invalid bit count")
	}

	result := 0
	for i := 0; i < n; i++ {
		bytePos := d.bitPos / 8
		bitOff := 7 - (d.bitPos % 8) // MSB first
		if bytePos >= len(d.src) {
			return 0, io.ErrUnexpectedEOF
		}
		bit := (int(d.src[bytePos]) >> bitOff) & 1
		result = (result << 1) | bit
		d.bitPos++
	}
	return result, nil
}

func (d *lzwBitReader) decode() ([]byte, error) {
	// Initialize the code table with all single-byte entries. Pre-allocate
	// for max 12-bit codes (4096 entries); clear/EOI occupy 256 and 257.
	table := make([]lzwEntry, 4097)
	for i := 0; i < 256; i++ {
		table[i] = lzwEntry{prefix: -1, suffix: byte(i), length: 1}
	}

	nextCode := lzwFirstCode
	codeWidth := 9

	var output []byte
	buf := make([]byte, 0, 4096)

	// getString extracts the string for a given code into buf (reversed,
	// then flipped in place).
	getString := func(code int) []byte {
		entry := &table[code]
		buf = buf[:entry.length]
		idx := entry.length - 1
		for code >= 0 {
			e := &table[code]
			buf[idx] = e.suffix
			idx--
			code = e.prefix
		}
		return buf
	}

	// First code must be a clear code per TIFF spec.
	code, err := d.readBits(codeWidth)
	if err != nil {
		return nil, err
	}
	if code != lzwClearCode {
		return nil, cogerr.New(cogerr.InvalidTiff, "lzw: first code is not clear code")
	}

	prevCode := -1

	for {
		code, err := d.readBits(codeWidth)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return output, nil
			}
			return nil, err
		}

		if code == lzwEOICode {
			return output, nil
		}

		if code == lzwClearCode {
			nextCode = lzwFirstCode
			codeWidth = 9
			prevCode = -1
			continue
		}

		if prevCode == -1 {
			if code >= 256 {
				return nil, cogerr.New(cogerr.InvalidTiff, "lzw: first code after clear is not literal")
			}
			output = append(output, byte(code))
			prevCode = code
			continue
		}

		var outStr []byte

		switch {
		case code < nextCode:
			outStr = getString(code)
			output = append(output, outStr...)
			if nextCode < 4097 {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: outStr[0], length: table[prevCode].length + 1}
				nextCode++
			}
		case code == nextCode:
			// KwKwK case: code is not yet in the table.
			prevStr := getString(prevCode)
			firstByte := prevStr[0]
			output = append(output, prevStr...)
			output = append(output, firstByte)
			if nextCode < 4097 {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: firstByte, length: table[prevCode].length + 1}
				nextCode++
			}
		default:
			return nil, cogerr.New(cogerr.InvalidTiff, "lzw: invalid code")
		}

		if nextCode+1 >= (1<<codeWidth) && codeWidth < lzwMaxWidth {
			codeWidth++
		}

		prevCode = code
	}
}
