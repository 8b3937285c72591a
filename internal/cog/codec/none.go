package codec

// NoneDecoder is the identity codec for TIFF Compression code 1: the tile
// bytes are already raw samples, the predictor (if any) still applies.
type NoneDecoder struct{}

func (NoneDecoder) Decode(raw []byte, _ DecoderMetadata) (Result, error) {
	return Result{Raw: raw}, nil
}
