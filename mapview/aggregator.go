package mapview

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"hazard-service/models"
)

// ClusterResult is one aggregated cell of markers for a wide viewport.
type ClusterResult struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int64   `json:"count"`
}

type clusterUnit struct {
	cnt      int64
	origCell s2.CellID
}

// Aggregator buckets markers into S2 cells sized for the viewport so the
// map never draws an unbounded number of pins.
type Aggregator struct {
	level int
	cells map[s2.CellID]*clusterUnit
}

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

// cellLevelForViewport picks the S2 cell level that keeps the viewport
// under the expected cell count.
func cellLevelForViewport(vp *models.ViewPort) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{Lo: minLL.Lat.Radians(), Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{Lo: minLL.Lng.Radians(), Hi: maxLL.Lng.Radians()},
	}
	vpArea := rect.Area()

	centerLat := (vp.LatMin + vp.LatMax) / 2
	centerLng := (vp.LonMin + vp.LonMax) / 2
	center := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLng))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(center.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel
}

func NewAggregator(vp *models.ViewPort) *Aggregator {
	return &Aggregator{
		level: cellLevelForViewport(vp),
		cells: make(map[s2.CellID]*clusterUnit),
	}
}

func (a *Aggregator) AddMarker(m Marker) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(m.Lat, m.Lng))
	parent := pc.Parent(a.level)
	if _, ok := a.cells[parent]; !ok {
		a.cells[parent] = &clusterUnit{}
	}
	a.cells[parent].cnt++
	a.cells[parent].origCell = pc
}

// ToArray flattens the cells. A cell with a single marker keeps the
// marker's exact position rather than the cell center.
func (a *Aggregator) ToArray() []ClusterResult {
	r := make([]ClusterResult, 0, len(a.cells))
	for c, unit := range a.cells {
		ll := c.LatLng()
		if unit.cnt == 1 {
			ll = unit.origCell.LatLng()
		}
		r = append(r, ClusterResult{
			Lat:   ll.Lat.Degrees(),
			Lng:   ll.Lng.Degrees(),
			Count: unit.cnt,
		})
	}
	return r
}
