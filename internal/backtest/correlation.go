package backtest

import (
	"math"
	"sort"

	"github.com/rewired-gh/gescout/internal/models"
)

// Matrix is a symmetric correlation matrix. Values[i][j] relates ItemIDs[i]
// and ItemIDs[j].
type Matrix struct {
	ItemIDs []int64     `json:"item_ids"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two items, or 0 when either is absent.
func (m Matrix) At(a, b int64) float64 {
	i, j := -1, -1
	for idx, id := range m.ItemIDs {
		if id == a {
			i = idx
		}
		if id == b {
			j = idx
		}
	}
	if i < 0 || j < 0 {
		return 0
	}
	return m.Values[i][j]
}

// CorrelationMatrix computes the Pearson correlation of mid prices for every
// pair of items, aligned on shared timestamps. Items are ordered by id.
func CorrelationMatrix(series map[int64][]models.TimeseriesPoint) Matrix {
	ids := make([]int64, 0, len(series))
	mids := make(map[int64]map[int64]float64, len(series))
	for id, points := range series {
		ids = append(ids, id)
		byTime := make(map[int64]float64, len(points))
		for _, p := range points {
			if mid, ok := p.Mid(); ok {
				byTime[p.Timestamp] = mid
			}
		}
		mids[id] = byTime
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	values := make([][]float64, len(ids))
	for i := range values {
		values[i] = make([]float64, len(ids))
		values[i][i] = 1
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			x, y := align(mids[ids[i]], mids[ids[j]])
			c := Pearson(x, y)
			values[i][j] = c
			values[j][i] = c
		}
	}
	return Matrix{ItemIDs: ids, Values: values}
}

func align(a, b map[int64]float64) ([]float64, []float64) {
	stamps := make([]int64, 0, len(a))
	for ts := range a {
		if _, ok := b[ts]; ok {
			stamps = append(stamps, ts)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	x := make([]float64, len(stamps))
	y := make([]float64, len(stamps))
	for i, ts := range stamps {
		x[i] = a[ts]
		y[i] = b[ts]
	}
	return x, y
}

// Pearson returns the correlation coefficient of x and y. It is 0 for
// mismatched lengths, fewer than two samples, or zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	var sx, sy RunningStats
	for i := range x {
		sx.Add(x[i])
		sy.Add(y[i])
	}
	if sx.StdDev() == 0 || sy.StdDev() == 0 {
		return 0
	}

	var cov float64
	for i := range x {
		cov += (x[i] - sx.Mean()) * (y[i] - sy.Mean())
	}
	cov /= float64(len(x) - 1)

	r := cov / (sx.StdDev() * sy.StdDev())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}
