package cog

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestApplyPredictorNoneIsNoop(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	orig := append([]byte(nil), data...)
	if err := applyPredictor(1, data, 4, 1, 8); err != nil {
		t.Fatalf("applyPredictor: %v", err)
	}
	for i := range orig {
		if data[i] != orig[i] {
			t.Errorf("data[%d] = %d, want unchanged %d", i, data[i], orig[i])
		}
	}
}

func TestApplyPredictorUnsupportedKind(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	if err := applyPredictor(99, data, 4, 1, 8); err == nil {
		t.Fatal("expected UnsupportedPredictor error")
	}
}

func TestUndoHorizontalDifferencing8Bit(t *testing.T) {
	// Original row [10,12,15,20], forward-differenced (each sample minus
	// the previous one of the same band) is [10,2,3,5].
	data := []byte{10, 2, 3, 5}
	if err := undoHorizontalDifferencing(data, 4, 1, 8); err != nil {
		t.Fatalf("undoHorizontalDifferencing: %v", err)
	}
	want := []byte{10, 12, 15, 20}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("data[%d] = %d, want %d", i, data[i], want[i])
		}
	}
}

func TestUndoHorizontalDifferencingMultiBand(t *testing.T) {
	// 2 samples per pixel, width 2: original pixels (10,20),(15,25);
	// forward-differenced per band gives (10,20),(5,5).
	data := []byte{10, 20, 5, 5}
	if err := undoHorizontalDifferencing(data, 2, 2, 8); err != nil {
		t.Fatalf("undoHorizontalDifferencing: %v", err)
	}
	want := []byte{10, 20, 15, 25}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("data[%d] = %d, want %d", i, data[i], want[i])
		}
	}
}

func TestUndoHorizontalDifferencing16Bit(t *testing.T) {
	orig := []uint16{1000, 1200, 1500, 2000}
	diffed := make([]uint16, len(orig))
	diffed[0] = orig[0]
	for i := 1; i < len(orig); i++ {
		diffed[i] = orig[i] - orig[i-1]
	}
	data := make([]byte, len(diffed)*2)
	for i, v := range diffed {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}

	if err := undoHorizontalDifferencing(data, 4, 1, 16); err != nil {
		t.Fatalf("undoHorizontalDifferencing: %v", err)
	}
	for i, want := range orig {
		got := binary.LittleEndian.Uint16(data[i*2:])
		if got != want {
			t.Errorf("sample[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestUndoHorizontalDifferencingRejectsUnalignedBits(t *testing.T) {
	data := []byte{1, 2, 3}
	if err := undoHorizontalDifferencing(data, 4, 1, 4); err == nil {
		t.Fatal("expected error for non-byte-aligned bits per sample")
	}
}

// forwardFloatPredictor mirrors, in reverse, what undoFloatingPointPredictor
// undoes: shuffle each row's sample bytes into most-significant-byte-first
// planes, then horizontally difference the shuffled bytes. Used only to
// build fixtures for TestUndoFloatingPointPredictorRoundTrip.
func forwardFloatPredictor(row []byte, width, samplesPerPixel, sampleBytes int) []byte {
	samplesPerRow := width * samplesPerPixel
	shuffled := make([]byte, len(row))
	for s := 0; s < samplesPerRow; s++ {
		for p := 0; p < sampleBytes; p++ {
			shuffled[p*samplesPerRow+s] = row[s*sampleBytes+(sampleBytes-1-p)]
		}
	}
	for i := len(shuffled) - 1; i >= 1; i-- {
		shuffled[i] -= shuffled[i-1]
	}
	return shuffled
}

func TestUndoFloatingPointPredictorRoundTrip(t *testing.T) {
	width, samplesPerPixel, bitsPerSample := 2, 1, 32
	sampleBytes := bitsPerSample / 8
	values := []float32{1.5, -2.25}

	row := make([]byte, len(values)*sampleBytes)
	for i, v := range values {
		binary.LittleEndian.PutUint32(row[i*sampleBytes:], math.Float32bits(v))
	}

	data := forwardFloatPredictor(row, width, samplesPerPixel, sampleBytes)

	if err := undoFloatingPointPredictor(data, width, samplesPerPixel, bitsPerSample); err != nil {
		t.Fatalf("undoFloatingPointPredictor: %v", err)
	}
	for i, want := range values {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*sampleBytes:]))
		if got != want {
			t.Errorf("sample[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestUndoFloatingPointPredictorRejectsUnsupportedWidth(t *testing.T) {
	data := make([]byte, 8)
	if err := undoFloatingPointPredictor(data, 4, 1, 16); err == nil {
		t.Fatal("expected error for non-32/64-bit floating point predictor")
	}
}
