package mi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mathext"
)

// discreteMI is the plug-in mutual information (nats) of two label vectors.
func discreteMI(x, y []float64) float64 {
	n := float64(len(x))
	type cell struct{ a, b float64 }
	joint := map[cell]float64{}
	px := map[float64]float64{}
	py := map[float64]float64{}
	for i := range x {
		joint[cell{x[i], y[i]}]++
		px[x[i]]++
		py[y[i]]++
	}
	if len(px) == 1 || len(py) == 1 {
		return 0
	}
	// Fixed summation order keeps the result bit-identical across runs.
	cells := make([]cell, 0, len(joint))
	for c := range joint {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].a == cells[j].a {
			return cells[i].b < cells[j].b
		}
		return cells[i].a < cells[j].a
	})
	var mi float64
	for _, c := range cells {
		nij := joint[c]
		mi += nij / n * (math.Log(nij) + math.Log(n) - math.Log(px[c.a]) - math.Log(py[c.b]))
	}
	return mi
}

// continuousMI is the KSG estimate with Chebyshev distance in the joint space.
func continuousMI(x, y []float64, k int) float64 {
	n := len(x)
	radius := chebyshevKth(x, y, k)
	sx := sortedCopy(x)
	sy := sortedCopy(y)
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		r := math.Nextafter(radius[i], 0)
		nx := countWithin(sx, x[i], r) - 1
		ny := countWithin(sy, y[i], r) - 1
		sumX += mathext.Digamma(float64(nx + 1))
		sumY += mathext.Digamma(float64(ny + 1))
	}
	return mathext.Digamma(float64(n)) + mathext.Digamma(float64(k)) -
		sumX/float64(n) - sumY/float64(n)
}

// mixedMI is the Ross estimate for continuous c against discrete labels d.
// Labels observed once carry no neighbour information and are left out.
func mixedMI(c, d []float64, k int) float64 {
	groups := map[float64][]int{}
	var labels []float64
	for i, label := range d {
		if _, ok := groups[label]; !ok {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], i)
	}
	var (
		keep   []int
		radius []float64
		kAll   []float64
		counts []float64
	)
	for _, label := range labels {
		idx := groups[label]
		count := len(idx)
		if count < 2 {
			continue
		}
		kk := k
		if kk > count-1 {
			kk = count - 1
		}
		vals := make([]float64, count)
		for j, i := range idx {
			vals[j] = c[i]
		}
		order := argsort(vals)
		sorted := make([]float64, count)
		for p, j := range order {
			sorted[p] = vals[j]
		}
		for p, j := range order {
			keep = append(keep, idx[j])
			radius = append(radius, math.Nextafter(kthGap(sorted, p, kk), 0))
			kAll = append(kAll, float64(kk))
			counts = append(counts, float64(count))
		}
	}
	m := len(keep)
	if m == 0 {
		return 0
	}
	vals := make([]float64, m)
	for j, i := range keep {
		vals[j] = c[i]
	}
	sorted := sortedCopy(vals)
	var sumK, sumN, sumM float64
	for j := range keep {
		sumK += mathext.Digamma(kAll[j])
		sumN += mathext.Digamma(counts[j])
		sumM += mathext.Digamma(float64(countWithin(sorted, vals[j], radius[j])))
	}
	fm := float64(m)
	return mathext.Digamma(fm) + sumK/fm - sumN/fm - sumM/fm
}

// chebyshevKth returns, per point, the distance to its k-th nearest other point
// under max(|dx|, |dy|). Candidates are visited outward in x order and the
// sweep stops once |dx| alone cannot beat the current k-th distance.
func chebyshevKth(x, y []float64, k int) []float64 {
	n := len(x)
	order := argsort(x)
	out := make([]float64, n)
	best := make([]float64, 0, k)
	for p, i := range order {
		best = best[:0]
		l, r := p-1, p+1
		for l >= 0 || r < n {
			left, right := math.Inf(1), math.Inf(1)
			if l >= 0 {
				left = x[i] - x[order[l]]
			}
			if r < n {
				right = x[order[r]] - x[i]
			}
			var j int
			var dx float64
			if left <= right {
				j, dx = order[l], left
				l--
			} else {
				j, dx = order[r], right
				r++
			}
			if len(best) == k && dx >= best[k-1] {
				break
			}
			best = insertBounded(best, math.Max(dx, math.Abs(y[j]-y[i])), k)
		}
		out[i] = best[len(best)-1]
	}
	return out
}

// insertBounded keeps best ascending with at most k entries.
func insertBounded(best []float64, d float64, k int) []float64 {
	if len(best) == k {
		if d >= best[k-1] {
			return best
		}
		best = best[:k-1]
	}
	pos := sort.SearchFloat64s(best, d)
	best = append(best, 0)
	copy(best[pos+1:], best[pos:])
	best[pos] = d
	return best
}

// kthGap returns the distance from sorted[p] to its k-th nearest neighbour
// within sorted, excluding itself. k must be < len(sorted).
func kthGap(sorted []float64, p, k int) float64 {
	l, r := p-1, p+1
	var d float64
	for step := 0; step < k; step++ {
		if l >= 0 && (r >= len(sorted) || sorted[p]-sorted[l] <= sorted[r]-sorted[p]) {
			d = sorted[p] - sorted[l]
			l--
		} else {
			d = sorted[r] - sorted[p]
			r++
		}
	}
	return d
}

// countWithin counts values with |s - v| <= r, including v itself.
func countWithin(sorted []float64, v, r float64) int {
	lo := sort.Search(len(sorted), func(i int) bool { return v-sorted[i] <= r })
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i]-v > r })
	return hi - lo
}

func argsort(x []float64) []int {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	return idx
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}
