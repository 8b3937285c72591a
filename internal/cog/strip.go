package cog

// stripLayout records a strip-based IFD's original strip offsets/sizes so
// virtual tiles can be reassembled from them at fetch time. Grounded on the
// teacher's promoteStripsToTiles/stripLayout: small strips are grouped into
// virtual tiles at least 256 rows tall so resampling kernels never span
// more than two tiles, and ifd.TileWidth/TileHeight/TileOffsets/
// TileByteCounts are rewritten in place so the rest of the package can
// treat a strip-based IFD exactly like a tiled one.
type stripLayout struct {
	offsets       []uint64
	byteCounts    []uint64
	rowsPerStrip  uint32
	stripsPerTile int
}

const minVirtualTileHeight = 256

// promoteStripsToTiles converts a strip-based IFD into a virtual tile
// layout, mutating ifd in place, and returns the stripLayout needed to
// reconstruct virtual tiles (several concatenated strips) at read time.
func promoteStripsToTiles(ifd *IFD) *stripLayout {
	rps := ifd.RowsPerStrip
	if rps == 0 {
		rps = ifd.Height
	}

	stripsPerTile := 1
	if rps < minVirtualTileHeight {
		stripsPerTile = int((minVirtualTileHeight + rps - 1) / rps)
	}
	virtualTileH := rps * uint32(stripsPerTile)

	totalStrips := len(ifd.StripOffsets)
	numVirtualTiles := (totalStrips + stripsPerTile - 1) / stripsPerTile

	virtualOffsets := make([]uint64, numVirtualTiles)
	virtualByteCounts := make([]uint64, numVirtualTiles)
	for i := 0; i < numVirtualTiles; i++ {
		startStrip := i * stripsPerTile
		virtualOffsets[i] = ifd.StripOffsets[startStrip]

		endStrip := startStrip + stripsPerTile
		if endStrip > totalStrips {
			endStrip = totalStrips
		}
		var totalBytes uint64
		for s := startStrip; s < endStrip; s++ {
			totalBytes += ifd.StripByteCounts[s]
		}
		virtualByteCounts[i] = totalBytes
	}

	sl := &stripLayout{
		offsets:       ifd.StripOffsets,
		byteCounts:    ifd.StripByteCounts,
		rowsPerStrip:  rps,
		stripsPerTile: stripsPerTile,
	}

	ifd.TileWidth = ifd.Width
	ifd.TileHeight = virtualTileH
	ifd.TileOffsets = virtualOffsets
	ifd.TileByteCounts = virtualByteCounts

	return sl
}
