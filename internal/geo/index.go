package geo

import "github.com/golang/geo/s2"

// cellLevel 7 gives cells roughly 29-53 miles across.
const cellLevel = 7

// maxIndexedRadiusMiles is the largest radius the cell-plus-neighbors probe
// can answer without missing sites; beyond it the index falls back to a full
// scan. From anywhere inside the query cell the ring extends at least one
// neighbor cell in every direction, so the guaranteed coverage is the
// minimum width of a cell at this level (about 29 miles at level 7). A site
// inside the radius but outside that bound could sit two cells away, which
// is why this is derived rather than chosen.
var maxIndexedRadiusMiles = s2.MinWidthMetric.Value(cellLevel) * EarthRadiusMiles

// Index buckets sites by S2 cell so radius queries over large site sets scan
// only nearby buckets instead of every site. Sites without coordinates are
// kept aside and reattached for no-origin queries.
//
// The index is immutable after construction; rebuild it when the site set
// changes.
type Index struct {
	cells     map[s2.CellID][]Site
	located   []Site
	unlocated []Site
}

// NewIndex builds an S2 cell index over the given sites.
func NewIndex(sites []Site) *Index {
	ix := &Index{cells: make(map[s2.CellID][]Site)}
	for _, s := range sites {
		if s.Point == nil {
			ix.unlocated = append(ix.unlocated, s)
			continue
		}
		ix.located = append(ix.located, s)
		cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(s.Point.Lat, s.Point.Lon)).Parent(cellLevel)
		ix.cells[cell] = append(ix.cells[cell], s)
	}
	return ix
}

// Candidates returns the sites that could fall within radiusMiles of origin.
// The result is a superset of the true answer; callers still apply
// FilterByRadius for exact distances.
func (ix *Index) Candidates(origin Point, radiusMiles float64) []Site {
	if radiusMiles > maxIndexedRadiusMiles {
		return ix.located
	}

	queryCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(origin.Lat, origin.Lon)).Parent(cellLevel)

	var out []Site
	for _, cell := range cellAndNeighbors(queryCell) {
		out = append(out, ix.cells[cell]...)
	}
	return out
}

// All returns every indexed site, including those without coordinates.
func (ix *Index) All() []Site {
	out := make([]Site, 0, len(ix.located)+len(ix.unlocated))
	out = append(out, ix.located...)
	out = append(out, ix.unlocated...)
	return out
}

// cellAndNeighbors returns the given cell plus its edge and corner neighbors.
func cellAndNeighbors(cell s2.CellID) []s2.CellID {
	cells := make([]s2.CellID, 0, 9)
	cells = append(cells, cell)

	edgeNeighbors := cell.EdgeNeighbors()
	for i := 0; i < 4; i++ {
		cells = append(cells, edgeNeighbors[i])
	}

	seen := make(map[s2.CellID]bool)
	for _, c := range cells {
		seen[c] = true
	}
	for i := 0; i < 4; i++ {
		for _, corner := range edgeNeighbors[i].EdgeNeighbors() {
			if !seen[corner] {
				cells = append(cells, corner)
				seen[corner] = true
			}
		}
	}
	return cells
}
