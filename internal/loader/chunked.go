package loader

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// defaultChunkShape is used when a container exposes no native tile/strip
// layout (Z, Y, X).
var defaultChunkShape = [3]int{64, 512, 512}

// LazyThresholdBytes is the size above which Read automatically switches to
// a ChunkedView instead of materializing the whole channel.
const LazyThresholdBytes = 1 << 30 // 1 GiB

// MaterializeFunc produces the voxel data for one chunk, identified by its
// origin within the full (Z,Y,X) volume and its shape (which may be smaller
// than ChunkShape at the volume's far edges).
type MaterializeFunc func(ctx context.Context, origin, shape [3]int) (*tensor.Tensor, error)

// ChunkedView is an explicit chunk-shape/origin-grid descriptor plus a
// materialization function, replacing the on-demand chunk-graph recompute
// pattern with strict row-major (Z, then Y, then X) iteration over a fixed
// grid computed once at construction.
type ChunkedView struct {
	volumeShape [3]int
	chunkShape  [3]int
	materialize MaterializeFunc
}

// NewChunkedView builds a ChunkedView over volumeShape with chunks sized to
// chunkShape (clamped at the volume's edges), backed by materialize.
func NewChunkedView(volumeShape, chunkShape [3]int, materialize MaterializeFunc) *ChunkedView {
	return &ChunkedView{volumeShape: volumeShape, chunkShape: chunkShape, materialize: materialize}
}

// NumChunks returns the chunk grid's extent along each axis.
func (v *ChunkedView) NumChunks() [3]int {
	var n [3]int
	for i := 0; i < 3; i++ {
		n[i] = (v.volumeShape[i] + v.chunkShape[i] - 1) / v.chunkShape[i]
	}
	return n
}

// ChunkOrigin returns the voxel origin of the chunk at grid index (cz, cy, cx).
func (v *ChunkedView) ChunkOrigin(cz, cy, cx int) [3]int {
	return [3]int{cz * v.chunkShape[0], cy * v.chunkShape[1], cx * v.chunkShape[2]}
}

// ChunkShapeAt returns the actual shape of the chunk at grid index (cz, cy,
// cx), clamped against the volume's edges.
func (v *ChunkedView) ChunkShapeAt(cz, cy, cx int) [3]int {
	origin := v.ChunkOrigin(cz, cy, cx)
	var shape [3]int
	for i, o := range origin {
		remaining := v.volumeShape[i] - o
		if remaining > v.chunkShape[i] {
			remaining = v.chunkShape[i]
		}
		shape[i] = remaining
	}
	return shape
}

// Materialize fetches the chunk at grid index (cz, cy, cx) as a Tensor.
func (v *ChunkedView) Materialize(ctx context.Context, cz, cy, cx int) (*tensor.Tensor, error) {
	origin := v.ChunkOrigin(cz, cy, cx)
	shape := v.ChunkShapeAt(cz, cy, cx)
	return v.materialize(ctx, origin, shape)
}

// ChunkCursor iterates a ChunkedView's grid in deterministic row-major
// (Z, then Y, then X) order.
type ChunkCursor struct {
	view       *ChunkedView
	n          [3]int
	cz, cy, cx int
	done       bool
}

// Cursor returns a fresh cursor positioned before the first chunk.
func (v *ChunkedView) Cursor() *ChunkCursor {
	return &ChunkCursor{view: v, n: v.NumChunks()}
}

// Next advances the cursor and materializes the next chunk, returning
// ok=false once iteration is exhausted.
func (c *ChunkCursor) Next(ctx context.Context) (t *tensor.Tensor, origin [3]int, ok bool, err error) {
	if c.done {
		return nil, [3]int{}, false, nil
	}
	origin = c.view.ChunkOrigin(c.cz, c.cy, c.cx)
	t, err = c.view.Materialize(ctx, c.cz, c.cy, c.cx)
	ok = true

	c.cx++
	if c.cx >= c.n[2] {
		c.cx = 0
		c.cy++
		if c.cy >= c.n[1] {
			c.cy = 0
			c.cz++
			if c.cz >= c.n[0] {
				c.done = true
			}
		}
	}
	return t, origin, ok, err
}

// chooseChunkShape returns the native tile/strip shape when known, else the
// (64, 512, 512) default, per spec.md's lazy-mode chunking rule.
func chooseChunkShape(nativeTileShape [3]int) [3]int {
	if nativeTileShape[0] > 0 && nativeTileShape[1] > 0 && nativeTileShape[2] > 0 {
		return nativeTileShape
	}
	return defaultChunkShape
}

// shouldUseLazy applies spec.md's automatic lazy-threshold rule: estimated
// size (sx*sy*sz*sc*bytesPerSample) exceeds 1 GiB or budget/2.
func shouldUseLazy(sx, sy, sz, sc, bytesPerSample int, budget int64) bool {
	size := int64(sx) * int64(sy) * int64(sz) * int64(sc) * int64(bytesPerSample)
	if size > LazyThresholdBytes {
		return true
	}
	if budget > 0 && size > budget/2 {
		return true
	}
	return false
}
