package world

import (
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
)

// Tree is a cylindrical trunk standing on the terrain.
type Tree struct {
	Base   r3.Vec
	Radius float64
	Height float64
}

// Terrain is a square heightmap over [0, Size] on X and Z with a flat water
// plane, a vegetation density grid and scattered trees.
type Terrain struct {
	size       float64
	cellSize   float64
	cols       int       // cells per side
	heights    []float64 // (cols+1)^2 vertex heights
	waterLevel float64

	veg      []float64 // current density per cell in [0, 1]
	capacity []float64 // density a cell regrows to
	regrowth float64

	trees    []Tree
	treeCell []int32 // tree index per cell, -1 for none
}

// NewTerrain generates terrain from the world config. The same seed always
// yields the same terrain.
func NewTerrain(cfg config.WorldConfig, seed int64) *Terrain {
	cols := int(math.Ceil(cfg.Size / cfg.CellSize))
	t := &Terrain{
		size:       cfg.Size,
		cellSize:   cfg.CellSize,
		cols:       cols,
		heights:    make([]float64, (cols+1)*(cols+1)),
		waterLevel: cfg.WaterLevel,
		veg:        make([]float64, cols*cols),
		capacity:   make([]float64, cols*cols),
		regrowth:   cfg.Regrowth,
		treeCell:   make([]int32, cols*cols),
	}

	height := opensimplex.NewNormalized(seed)
	for vz := 0; vz <= cols; vz++ {
		for vx := 0; vx <= cols; vx++ {
			x := float64(vx) * cfg.CellSize
			z := float64(vz) * cfg.CellSize
			h := fbm(height, x*cfg.NoiseScale, z*cfg.NoiseScale, cfg.Octaves)
			// Shift so roughly a third of the map lies under water
			t.heights[vz*(cols+1)+vx] = cfg.WaterLevel + (h-0.4)*cfg.HeightScale
		}
	}

	t.plant(cfg, seed)
	return t
}

// NewFlat returns level ground at the given height with no vegetation or trees.
func NewFlat(size, cellSize, height, waterLevel float64) *Terrain {
	cols := int(math.Ceil(size / cellSize))
	t := &Terrain{
		size:       size,
		cellSize:   cellSize,
		cols:       cols,
		heights:    make([]float64, (cols+1)*(cols+1)),
		waterLevel: waterLevel,
		veg:        make([]float64, cols*cols),
		capacity:   make([]float64, cols*cols),
		treeCell:   make([]int32, cols*cols),
	}
	for i := range t.heights {
		t.heights[i] = height
	}
	for i := range t.treeCell {
		t.treeCell[i] = -1
	}
	return t
}

// plant fills the vegetation grid and places trees on vegetated dry cells.
func (t *Terrain) plant(cfg config.WorldConfig, seed int64) {
	growth := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 2))
	threshold := cfg.Vegetation

	for cz := 0; cz < t.cols; cz++ {
		for cx := 0; cx < t.cols; cx++ {
			idx := cz*t.cols + cx
			t.treeCell[idx] = -1

			center := t.CellCenter(ai.Cell{X: cx, Z: cz})
			if center.Y <= t.waterLevel {
				continue
			}
			if t.GroundNormal(center.X, center.Z).Y < cfg.MaxSlope {
				continue
			}
			v := growth.Eval2(center.X*cfg.NoiseScale*4, center.Z*cfg.NoiseScale*4)
			if v <= threshold || threshold >= 1 {
				continue
			}
			density := (v - threshold) / (1 - threshold)
			t.veg[idx] = density
			t.capacity[idx] = density

			if rng.Float64() < cfg.TreeDensity {
				jitter := (t.cellSize - 2*cfg.TreeRadius) * 0.5
				base := r3.Vec{
					X: center.X + (rng.Float64()*2-1)*jitter,
					Z: center.Z + (rng.Float64()*2-1)*jitter,
				}
				base.Y = t.GroundHeight(base.X, base.Z)
				t.treeCell[idx] = int32(len(t.trees))
				t.trees = append(t.trees, Tree{Base: base, Radius: cfg.TreeRadius, Height: cfg.TreeHeight})
			}
		}
	}
}

func fbm(n opensimplex.Noise, x, z float64, octaves int) float64 {
	if octaves < 1 {
		octaves = 1
	}
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		sum += amp * n.Eval2(x*freq, z*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

// Size returns the world edge length.
func (t *Terrain) Size() float64 {
	return t.size
}

// InBounds reports whether (x, z) lies on the map.
func (t *Terrain) InBounds(x, z float64) bool {
	return x >= 0 && z >= 0 && x <= t.size && z <= t.size
}

// GroundHeight returns the bilinear height at (x, z), clamped to the map.
func (t *Terrain) GroundHeight(x, z float64) float64 {
	fx := clampFloat(x/t.cellSize, 0, float64(t.cols))
	fz := clampFloat(z/t.cellSize, 0, float64(t.cols))
	x0 := clampInt(int(fx), 0, t.cols-1)
	z0 := clampInt(int(fz), 0, t.cols-1)
	tx := fx - float64(x0)
	tz := fz - float64(z0)

	stride := t.cols + 1
	h00 := t.heights[z0*stride+x0]
	h10 := t.heights[z0*stride+x0+1]
	h01 := t.heights[(z0+1)*stride+x0]
	h11 := t.heights[(z0+1)*stride+x0+1]

	h0 := h00 + (h10-h00)*tx
	h1 := h01 + (h11-h01)*tx
	return h0 + (h1-h0)*tz
}

// GroundNormal returns the surface normal at (x, z) by central differences.
func (t *Terrain) GroundNormal(x, z float64) r3.Vec {
	e := t.cellSize * 0.5
	dx := (t.GroundHeight(x+e, z) - t.GroundHeight(x-e, z)) / (2 * e)
	dz := (t.GroundHeight(x, z+e) - t.GroundHeight(x, z-e)) / (2 * e)
	return r3.Unit(r3.Vec{X: -dx, Y: 1, Z: -dz})
}

// WaterLevel returns the height of the water plane.
func (t *Terrain) WaterLevel() float64 {
	return t.waterLevel
}

// CellOf returns the vegetation cell containing p.
func (t *Terrain) CellOf(p r3.Vec) ai.Cell {
	return ai.Cell{
		X: int(math.Floor(p.X / t.cellSize)),
		Z: int(math.Floor(p.Z / t.cellSize)),
	}
}

// CellCenter returns the ground point at the center of c.
func (t *Terrain) CellCenter(c ai.Cell) r3.Vec {
	x := (float64(c.X) + 0.5) * t.cellSize
	z := (float64(c.Z) + 0.5) * t.cellSize
	return r3.Vec{X: x, Y: t.GroundHeight(x, z), Z: z}
}

func (t *Terrain) cellIndex(c ai.Cell) int {
	if c.X < 0 || c.Z < 0 || c.X >= t.cols || c.Z >= t.cols {
		return -1
	}
	return c.Z*t.cols + c.X
}

// Vegetation returns the food density of c, 0 off the map.
func (t *Terrain) Vegetation(c ai.Cell) float64 {
	idx := t.cellIndex(c)
	if idx < 0 {
		return 0
	}
	return t.veg[idx]
}

// Graze removes up to amount of density from c and returns what was eaten.
func (t *Terrain) Graze(c ai.Cell, amount float64) float64 {
	idx := t.cellIndex(c)
	if idx < 0 || amount <= 0 {
		return 0
	}
	eaten := math.Min(amount, t.veg[idx])
	t.veg[idx] -= eaten
	return eaten
}

// SetVegetation sets the density and capacity of c.
func (t *Terrain) SetVegetation(c ai.Cell, density float64) {
	idx := t.cellIndex(c)
	if idx < 0 {
		return
	}
	density = clampFloat(density, 0, 1)
	t.veg[idx] = density
	t.capacity[idx] = density
}

// PaintVegetation sets every cell whose center lies within radius of
// (x, z) to density.
func (t *Terrain) PaintVegetation(x, z, radius, density float64) {
	lo := t.CellOf(r3.Vec{X: x - radius, Z: z - radius})
	hi := t.CellOf(r3.Vec{X: x + radius, Z: z + radius})
	for cz := lo.Z; cz <= hi.Z; cz++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			c := ai.Cell{X: cx, Z: cz}
			center := t.CellCenter(c)
			if math.Hypot(center.X-x, center.Z-z) <= radius {
				t.SetVegetation(c, density)
			}
		}
	}
}

// SetRegrowth sets the fraction of capacity recovered per second.
func (t *Terrain) SetRegrowth(rate float64) {
	t.regrowth = rate
}

// Regrow restores vegetation toward each cell's capacity.
func (t *Terrain) Regrow(dt float64) {
	step := t.regrowth * dt
	if step <= 0 {
		return
	}
	for i, c := range t.capacity {
		if t.veg[i] < c {
			t.veg[i] = math.Min(c, t.veg[i]+step*c)
		}
	}
}

// Trees returns every tree on the map.
func (t *Terrain) Trees() []Tree {
	return t.trees
}

// AddTree plants a trunk at (x, z), replacing any tree in that cell.
func (t *Terrain) AddTree(x, z, radius, height float64) {
	base := r3.Vec{X: x, Y: t.GroundHeight(x, z), Z: z}
	idx := t.cellIndex(t.CellOf(base))
	if idx < 0 {
		return
	}
	tree := Tree{Base: base, Radius: radius, Height: height}
	if t.treeCell[idx] >= 0 {
		t.trees[t.treeCell[idx]] = tree
		return
	}
	t.treeCell[idx] = int32(len(t.trees))
	t.trees = append(t.trees, tree)
}

// TreeNear returns a tree whose trunk lies within radius of p on the XZ plane
// and spans p's height.
func (t *Terrain) TreeNear(p r3.Vec, radius float64) (Tree, bool) {
	c := t.CellOf(p)
	reach := int(math.Ceil(radius/t.cellSize)) + 1
	for dz := -reach; dz <= reach; dz++ {
		for dx := -reach; dx <= reach; dx++ {
			idx := t.cellIndex(ai.Cell{X: c.X + dx, Z: c.Z + dz})
			if idx < 0 || t.treeCell[idx] < 0 {
				continue
			}
			tree := t.trees[t.treeCell[idx]]
			if p.Y < tree.Base.Y || p.Y > tree.Base.Y+tree.Height {
				continue
			}
			if r3.Norm(components.Flat(r3.Sub(p, tree.Base))) <= radius+tree.Radius {
				return tree, true
			}
		}
	}
	return Tree{}, false
}

// NearestTree returns the closest tree within radius of p on the XZ plane.
func (t *Terrain) NearestTree(p r3.Vec, radius float64) (Tree, bool) {
	c := t.CellOf(p)
	reach := int(math.Ceil(radius/t.cellSize)) + 1
	best := math.Inf(1)
	var found Tree
	for dz := -reach; dz <= reach; dz++ {
		for dx := -reach; dx <= reach; dx++ {
			idx := t.cellIndex(ai.Cell{X: c.X + dx, Z: c.Z + dz})
			if idx < 0 || t.treeCell[idx] < 0 {
				continue
			}
			tree := t.trees[t.treeCell[idx]]
			d := r3.Norm(components.Flat(r3.Sub(p, tree.Base)))
			if d <= radius && d < best {
				best = d
				found = tree
			}
		}
	}
	return found, !math.IsInf(best, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
