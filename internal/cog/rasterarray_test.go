package cog

import (
	"testing"
)

func testHeader(width, height, count int) Header {
	return Header{Width: width, Height: height, Count: count}
}

func TestNewBandSeparateValidatesBandCount(t *testing.T) {
	h := testHeader(2, 2, 2)
	_, err := NewBandSeparate(h, [][]uint8{{1, 2, 3, 4}})
	if err == nil {
		t.Fatal("expected band count mismatch error")
	}
}

func TestNewBandSeparateValidatesBandLength(t *testing.T) {
	h := testHeader(2, 2, 1)
	_, err := NewBandSeparate(h, [][]uint8{{1, 2, 3}})
	if err == nil {
		t.Fatal("expected band length mismatch error")
	}
}

func TestNewBandSeparateValidatesMaskLength(t *testing.T) {
	h := testHeader(2, 2, 1)
	h.Mask = []byte{1, 1, 1}
	_, err := NewBandSeparate(h, [][]uint8{{1, 2, 3, 4}})
	if err == nil {
		t.Fatal("expected mask length mismatch error")
	}
}

func TestBandSeparateToPixelInterleavedRoundTrip(t *testing.T) {
	h := testHeader(2, 2, 3)
	bands := [][]uint8{
		{1, 2, 3, 4},     // R
		{10, 20, 30, 40}, // G
		{100, 110, 120, 130}, // B
	}
	bs, err := NewBandSeparate(h, bands)
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}

	pi, err := bs.ToPixelInterleaved(nil)
	if err != nil {
		t.Fatalf("ToPixelInterleaved: %v", err)
	}
	want := []uint8{1, 10, 100, 2, 20, 110, 3, 30, 120, 4, 40, 130}
	if len(pi.Data) != len(want) {
		t.Fatalf("got %d samples, want %d", len(pi.Data), len(want))
	}
	for i := range want {
		if pi.Data[i] != want[i] {
			t.Errorf("Data[%d] = %d, want %d", i, pi.Data[i], want[i])
		}
	}

	back, err := pi.ToBandSeparate()
	if err != nil {
		t.Fatalf("ToBandSeparate: %v", err)
	}
	for b := range bands {
		for pix := range bands[b] {
			if back.Bands[b][pix] != bands[b][pix] {
				t.Errorf("band %d pixel %d = %d, want %d", b, pix, back.Bands[b][pix], bands[b][pix])
			}
		}
	}
}

func TestBandSeparateToPixelInterleavedReorders(t *testing.T) {
	h := testHeader(1, 1, 3)
	bs, err := NewBandSeparate(h, [][]uint8{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	pi, err := bs.ToPixelInterleaved([]int{2, 0, 1})
	if err != nil {
		t.Fatalf("ToPixelInterleaved: %v", err)
	}
	want := []uint8{3, 1, 2}
	for i := range want {
		if pi.Data[i] != want[i] {
			t.Errorf("Data[%d] = %d, want %d", i, pi.Data[i], want[i])
		}
	}
}

func TestReorderBandsOutOfRangeFails(t *testing.T) {
	h := testHeader(1, 1, 2)
	bs, err := NewBandSeparate(h, [][]uint8{{1}, {2}})
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	_, err = bs.ReorderBands([]int{0, 5})
	if err == nil {
		t.Fatal("expected BandIndexOutOfRange error")
	}
}

func TestResolveBandOrderEmptyBandsFails(t *testing.T) {
	h := testHeader(1, 1, 0)
	bs, err := NewBandSeparate(h, nil)
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	_, err = bs.ReorderBands(nil)
	if err == nil {
		t.Fatal("expected EmptyBandOrder error")
	}
}

func TestPackBandsToRGBAFillsMissingChannels(t *testing.T) {
	h := testHeader(1, 1, 2)
	bs, err := NewBandSeparate(h, [][]uint8{{10}, {20}})
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	out, err := bs.PackBandsToRGBA(nil, 7)
	if err != nil {
		t.Fatalf("PackBandsToRGBA: %v", err)
	}
	want := []byte{10, 20, 7, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestPackBandsToRGBAClampsWideSamples(t *testing.T) {
	h := testHeader(1, 1, 1)
	bs, err := NewBandSeparate(h, [][]float32{{-5}})
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	out, err := bs.PackBandsToRGBA(nil, 0)
	if err != nil {
		t.Fatalf("PackBandsToRGBA: %v", err)
	}
	if out[0] != 0 {
		t.Errorf("clamped low sample = %d, want 0", out[0])
	}

	bsHigh, err := NewBandSeparate(h, [][]float32{{9999}})
	if err != nil {
		t.Fatalf("NewBandSeparate: %v", err)
	}
	out, err = bsHigh.PackBandsToRGBA(nil, 0)
	if err != nil {
		t.Fatalf("PackBandsToRGBA: %v", err)
	}
	if out[0] != 255 {
		t.Errorf("clamped high sample = %d, want 255", out[0])
	}
}

func TestNewPixelInterleavedValidatesLength(t *testing.T) {
	h := testHeader(2, 2, 3)
	_, err := NewPixelInterleaved(h, make([]uint8, 5))
	if err == nil {
		t.Fatal("expected pixel data length mismatch error")
	}
}
