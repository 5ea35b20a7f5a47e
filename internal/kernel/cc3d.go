package kernel

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// neighbors6 and neighbors26 list the prior-scanned offsets (in scanline
// order: Z outer, Y middle, X inner) a two-pass union-find labeling pass
// must check, for 6- and 26-connectivity respectively.
var neighbors6 = [][3]int{{0, 0, -1}, {0, -1, 0}, {-1, 0, 0}}
var neighbors26 = [][3]int{
	{0, 0, -1}, {0, -1, -1}, {0, -1, 0}, {0, -1, 1},
	{-1, -1, -1}, {-1, -1, 0}, {-1, -1, 1},
	{-1, 0, -1}, {-1, 0, 0}, {-1, 0, 1},
	{-1, 1, -1}, {-1, 1, 0}, {-1, 1, 1},
}

// fullNeighbors26 lists all 26 face/edge/corner neighbors of a voxel, for
// passes (like Watershed3D's flood) that are not restricted to
// already-scanned directions.
var fullNeighbors26 = func() [][3]int {
	var out [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dz == 0 && dy == 0 && dx == 0 {
					continue
				}
				out = append(out, [3]int{dz, dy, dx})
			}
		}
	}
	return out
}()

// unionFind is a standard disjoint-set structure with path compression,
// used by ConnectedComponents3D's first pass to merge provisional labels.
type unionFind struct {
	parent []int32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int32, n)}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
	}
	return uf
}

func (uf *unionFind) find(x int32) int32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int32) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// ConnectedComponents3D labels connected foreground (nonzero) voxels of
// binary using connectivity (6 or 26), via the standard two-pass
// union-find scheme: a scanline pass assigns provisional labels and
// records union edges against already-scanned neighbors, then a second
// pass flattens every provisional label to a dense 1..N id in scan order.
// Returns a U16 label tensor and the number of components found.
func ConnectedComponents3D(ctx context.Context, binary *tensor.Tensor, connectivity int) (*tensor.Tensor, int, error) {
	shape := binary.Shape()
	n := shape[0] * shape[1] * shape[2]
	if n == 0 {
		return nil, 0, ErrEmptyVolume
	}
	grid, _, err := toFloat32Grid(ctx, binary)
	if err != nil {
		return nil, 0, err
	}

	offsets := neighbors6
	if connectivity == 26 {
		offsets = neighbors26
	}

	provisional := make([]int32, n)
	uf := newUnionFind(n + 1) // index 0 reserved as "no label"
	nextLabel := int32(1)

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				i := idx3(shape, z, y, x)
				if grid[i] == 0 {
					continue
				}

				var label int32
				for _, off := range offsets {
					nz, ny, nx := z+off[0], y+off[1], x+off[2]
					if nz < 0 || ny < 0 || nx < 0 || ny >= shape[1] || nx >= shape[2] {
						continue
					}
					ni := idx3(shape, nz, ny, nx)
					if grid[ni] == 0 {
						continue
					}
					nl := provisional[ni]
					if nl == 0 {
						continue
					}
					if label == 0 {
						label = nl
					} else if label != nl {
						uf.union(label, nl)
					}
				}
				if label == 0 {
					label = nextLabel
					nextLabel++
				}
				provisional[i] = label
			}
		}
	}

	dense := make(map[int32]int32)
	var count int32
	labels := make([]float32, n)
	for i, p := range provisional {
		if p == 0 {
			continue
		}
		root := uf.find(p)
		id, ok := dense[root]
		if !ok {
			count++
			id = count
			dense[root] = id
		}
		labels[i] = float32(id)
	}

	out, err := fromFloat32Grid(labels, shape, tensor.U16)
	if err != nil {
		return nil, 0, err
	}
	return out, int(count), nil
}
