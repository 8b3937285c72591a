// Package mesh builds an adaptive triangle mesh approximating the
// per-pixel reprojection of an input raster into an output CRS, following
// a Delatin-style greedy refinement: start from two triangles spanning
// the full pixel grid and keep splitting the triangle whose worst pixel
// disagrees most with the triangle's own linear approximation, until
// every triangle is within tolerance.
package mesh

import (
	"container/heap"
	"context"
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// ReprojectionFns bundles the four coordinate-space conversions the mesher
// needs. pixelToInputCRS and forwardReproject establish a vertex's exact
// output position; inverseReproject and inputCRSToPixel measure how well a
// triangle's linear interpolation predicts that position, expressed back
// in pixel units.
type ReprojectionFns struct {
	PixelToInputCRS  func(px, py float64) (x, y float64)
	InputCRSToPixel  func(x, y float64) (px, py float64)
	ForwardReproject func(x, y float64) (ox, oy float64, err error)
	InverseReproject func(ox, oy float64) (x, y float64, err error)
}

// Mesh is the output of Run: a triangle list approximating the
// reprojection across the input raster.
type Mesh struct {
	// Positions holds 3 float32s per vertex (x, y, z) in the output CRS;
	// z is always 0, the mesh is planar.
	Positions []float32
	// UVs holds 2 float32s per vertex: input-pixel coordinates normalised
	// to [0,1]x[0,1].
	UVs []float32
	// Indices lists 3 vertex indices per triangle, CCW.
	Indices []uint32
}

// interiorEpsilon keeps candidate pixels strictly inside a triangle,
// away from its edges and vertices, so a split never re-proposes an
// already-placed vertex.
const interiorEpsilon = 1e-7

type vertex struct {
	px, py float64 // input pixel coordinates
	ox, oy float64 // exact reprojected position in the output CRS
}

type triangleNode struct {
	v0, v1, v2 int
	dead       bool
	skip       map[[2]int]bool
}

type candidate struct {
	triIdx int
	px, py float64
	errPx  float64
}

type candidateQueue []*candidate

func (q candidateQueue) Len() int { return len(q) }
func (q candidateQueue) Less(i, j int) bool {
	if q[i].errPx != q[j].errPx {
		return q[i].errPx > q[j].errPx
	}
	// Deterministic tie-break keeps Run reproducible across calls, which
	// the idempotent-superset contract depends on.
	if q[i].triIdx != q[j].triIdx {
		return q[i].triIdx < q[j].triIdx
	}
	if q[i].py != q[j].py {
		return q[i].py < q[j].py
	}
	return q[i].px < q[j].px
}
func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x any)   { *q = append(*q, x.(*candidate)) }
func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

type builder struct {
	fns           ReprojectionFns
	width, height int
	vertices      []vertex
	triangles     []*triangleNode
}

// Run builds the mesh for a width x height input raster. A zero-area
// raster fails with InvalidRasterSize. Re-running with a smaller maxError
// over the same inputs deterministically yields a superset mesh, since
// the refinement order depends only on (width, height, fns, maxError).
func Run(ctx context.Context, width, height int, fns ReprojectionFns, maxError float64) (*Mesh, error) {
	if width <= 0 || height <= 0 {
		return nil, cogerr.New(cogerr.InvalidRasterSize, "mesh input raster has zero or negative extent",
			cogerr.KV{Key: "width", Value: width}, cogerr.KV{Key: "height", Value: height})
	}
	select {
	case <-ctx.Done():
		return nil, cogerr.New(cogerr.Aborted, "mesh run cancelled before starting")
	default:
	}

	b := &builder{fns: fns, width: width, height: height}
	if err := b.seed(); err != nil {
		return nil, err
	}

	pq := &candidateQueue{}
	heap.Init(pq)
	for i, t := range b.triangles {
		if c, ok := b.bestCandidate(i, t, maxError); ok {
			heap.Push(pq, c)
		}
	}

	for pq.Len() > 0 {
		c := heap.Pop(pq).(*candidate)
		t := b.triangles[c.triIdx]
		if t.dead {
			continue
		}

		vIdx, ok, err := b.insertWithFallback(c.triIdx, t, c, maxError)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Every candidate in this triangle turned out non-invertible
			// at insertion time; the triangle is left as a leaf.
			continue
		}

		children := b.split(c.triIdx, vIdx)
		for _, ci := range children {
			if cand, ok := b.bestCandidate(ci, b.triangles[ci], maxError); ok {
				heap.Push(pq, cand)
			}
		}
	}

	return b.build(), nil
}

// seed creates the 4 corner vertices and the two triangles spanning the
// whole pixel grid, per spec.md §4.10.
func (b *builder) seed() error {
	w, h := float64(b.width), float64(b.height)
	corners := [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}}
	idx := make([]int, 4)
	for i, p := range corners {
		v, err := b.exactVertex(p[0], p[1])
		if err != nil {
			return err
		}
		b.vertices = append(b.vertices, v)
		idx[i] = i
	}
	tl, tr, bl, br := idx[0], idx[1], idx[2], idx[3]
	b.triangles = append(b.triangles,
		&triangleNode{v0: tl, v1: br, v2: tr},
		&triangleNode{v0: tl, v1: bl, v2: br},
	)
	return nil
}

// exactVertex computes the exact reprojected output position of a pixel
// coordinate, used when a vertex is actually placed (seed corners and
// refinement insertions) rather than when merely probing pixels for error.
func (b *builder) exactVertex(px, py float64) (vertex, error) {
	x, y := b.fns.PixelToInputCRS(px, py)
	ox, oy, err := b.fns.ForwardReproject(x, y)
	if err != nil {
		return vertex{}, err
	}
	return vertex{px: px, py: py, ox: ox, oy: oy}, nil
}

// pixelError measures, in pixel units, how far the triangle's linear
// interpolation of output position at (px,py) diverges from (px,py)
// itself: the interpolated output position is mapped back into pixel
// space and compared against the probed pixel. A perfect linear
// approximation round-trips to exactly (px,py). Returns ok=false when the
// interpolated output position is non-invertible at this point, which the
// caller treats as "evict this candidate, try the next-highest pixel".
func (b *builder) pixelError(px, py float64, v0, v1, v2 vertex) (float64, bool) {
	w0, w1, w2, ok := barycentric(px, py, v0, v1, v2)
	if !ok || w0 < interiorEpsilon || w1 < interiorEpsilon || w2 < interiorEpsilon {
		return 0, false
	}
	interpOX := w0*v0.ox + w1*v1.ox + w2*v2.ox
	interpOY := w0*v0.oy + w1*v1.oy + w2*v2.oy

	ix, iy, err := b.fns.InverseReproject(interpOX, interpOY)
	if err != nil {
		return 0, false
	}
	apx, apy := b.fns.InputCRSToPixel(ix, iy)
	return math.Hypot(apx-px, apy-py), true
}

func barycentric(px, py float64, v0, v1, v2 vertex) (w0, w1, w2 float64, ok bool) {
	denom := (v1.py-v2.py)*(v0.px-v2.px) + (v2.px-v1.px)*(v0.py-v2.py)
	if denom == 0 {
		return 0, 0, 0, false
	}
	w0 = ((v1.py-v2.py)*(px-v2.px) + (v2.px-v1.px)*(py-v2.py)) / denom
	w1 = ((v2.py-v0.py)*(px-v2.px) + (v0.px-v2.px)*(py-v2.py)) / denom
	w2 = 1 - w0 - w1
	return w0, w1, w2, true
}

// bestCandidate scans the integer pixels inside triangle t's bounding box
// (clamped to the raster) for the one with the largest pixelError,
// skipping pixels the triangle has already tried and failed to insert
// (t.skip) and any exactly on the triangle's boundary. Returns ok=false
// when no pixel exceeds maxError.
func (b *builder) bestCandidate(triIdx int, t *triangleNode, maxError float64) (*candidate, bool) {
	v0, v1, v2 := b.vertices[t.v0], b.vertices[t.v1], b.vertices[t.v2]

	minPX := math.Floor(min3(v0.px, v1.px, v2.px))
	maxPX := math.Ceil(max3(v0.px, v1.px, v2.px))
	minPY := math.Floor(min3(v0.py, v1.py, v2.py))
	maxPY := math.Ceil(max3(v0.py, v1.py, v2.py))

	startX := clampInt(int(minPX), 0, b.width-1)
	endX := clampInt(int(maxPX), 0, b.width-1)
	startY := clampInt(int(minPY), 0, b.height-1)
	endY := clampInt(int(maxPY), 0, b.height-1)

	var best *candidate
	for y := startY; y <= endY; y++ {
		for x := startX; x <= endX; x++ {
			if t.skip != nil && t.skip[[2]int{x, y}] {
				continue
			}
			errPx, ok := b.pixelError(float64(x), float64(y), v0, v1, v2)
			if !ok {
				continue
			}
			if best == nil || errPx > best.errPx {
				best = &candidate{triIdx: triIdx, px: float64(x), py: float64(y), errPx: errPx}
			}
		}
	}
	if best == nil || best.errPx <= maxError {
		return nil, false
	}
	return best, true
}

// insertWithFallback tries to actually place the candidate vertex. If its
// forward reprojection turns out non-invertible (rare: the round-trip
// check in pixelError passed, but the direct forward transform at that
// exact point still fails), the candidate is evicted and the triangle is
// rescanned for the next-highest-error pixel, per spec.md §4.10's
// eviction rule.
func (b *builder) insertWithFallback(triIdx int, t *triangleNode, c *candidate, maxError float64) (int, bool, error) {
	for {
		v, err := b.exactVertex(c.px, c.py)
		if err == nil {
			b.vertices = append(b.vertices, v)
			return len(b.vertices) - 1, true, nil
		}

		if t.skip == nil {
			t.skip = make(map[[2]int]bool)
		}
		t.skip[[2]int{int(c.px), int(c.py)}] = true

		next, ok := b.bestCandidate(triIdx, t, maxError)
		if !ok {
			return 0, false, nil
		}
		c = next
	}
}

// split replaces triangle triIdx with 3 new triangles sharing the newly
// inserted vertex, returning their indices. Adjacent triangles across a
// shared edge are not re-split to match (no edge-conformity bookkeeping
// is kept), which can leave small seams between differently-refined
// triangles; acceptable for a raster reprojection overlay, not for a
// watertight terrain mesh.
func (b *builder) split(triIdx int, newVertex int) []int {
	t := b.triangles[triIdx]
	t.dead = true

	children := []*triangleNode{
		{v0: t.v0, v1: t.v1, v2: newVertex},
		{v0: t.v1, v1: t.v2, v2: newVertex},
		{v0: t.v2, v1: t.v0, v2: newVertex},
	}
	indices := make([]int, len(children))
	for i, c := range children {
		b.triangles = append(b.triangles, c)
		indices[i] = len(b.triangles) - 1
	}
	return indices
}

// build assembles the final Mesh from every triangle still alive (never
// split further).
func (b *builder) build() *Mesh {
	m := &Mesh{
		Positions: make([]float32, 0, len(b.vertices)*3),
		UVs:       make([]float32, 0, len(b.vertices)*2),
		Indices:   make([]uint32, 0),
	}
	for _, v := range b.vertices {
		m.Positions = append(m.Positions, float32(v.ox), float32(v.oy), 0)
		m.UVs = append(m.UVs, float32(v.px/float64(b.width)), float32(v.py/float64(b.height)))
	}
	for _, t := range b.triangles {
		if t.dead {
			continue
		}
		m.Indices = append(m.Indices, uint32(t.v0), uint32(t.v1), uint32(t.v2))
	}
	return m
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
