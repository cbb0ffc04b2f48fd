// Guided filter with grayscale and colour guides
package algorithms

import (
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"dewaff/internal/core"
)

// GuidedFilter fits a local linear model of subject against guide in every
// (windowSize x windowSize) box and averages the overlapping models:
//
//	q = mean(a) * I + mean(b)
//
// with eps = rangeSigma^2 regularizing a. A 1-channel guide filters each
// subject channel with the scalar model, a 3-channel guide uses the full
// colour covariance. A nil guide filters subject against itself.
func (f *Filters) GuidedFilter(guide, subject *core.Image, windowSize int, rangeSigma float64) (*core.Image, error) {
	if err := validateGuided(Params{WindowSize: windowSize, RangeSigma: rangeSigma}); err != nil {
		return nil, err
	}
	guide, err := resolveGuide(guide, subject)
	if err != nil {
		return nil, err
	}

	eps := rangeSigma * rangeSigma
	box := newBoxFilter(subject.Width, subject.Height, windowSize/2)

	guidePlanes := make([][]float64, guide.Channels)
	for c := range guidePlanes {
		guidePlanes[c] = guide.Plane(c)
	}

	out := core.NewImage(subject.Width, subject.Height, subject.Channels)
	var degenerate int64
	for c := 0; c < subject.Channels; c++ {
		p := subject.Plane(c)
		var q []float64
		if guide.Channels == 1 {
			q = f.guidedGray(box, guidePlanes[0], p, eps)
		} else {
			var n int64
			q, n = f.guidedColor(box, guidePlanes, p, eps)
			degenerate += n
		}
		out.SetPlane(c, q)
	}

	if degenerate > 0 {
		f.logger.WithFields(logrus.Fields{
			"filter": NameGuided,
			"pixels": degenerate,
		}).Warn("Singular guide covariance, local mean kept")
	}

	return out, nil
}

func (f *Filters) guidedGray(box *boxFilter, I, p []float64, eps float64) []float64 {
	meanI := box.MeanOf(I)
	meanP := box.MeanOf(p)
	corrII := box.MeanOfProduct(I, I)
	corrIP := box.MeanOfProduct(I, p)

	a := make([]float64, len(p))
	b := make([]float64, len(p))
	f.rows(box, func(i int) {
		varI := corrII[i] - meanI[i]*meanI[i]
		covIP := corrIP[i] - meanI[i]*meanP[i]
		a[i] = covIP / (varI + eps)
		b[i] = meanP[i] - a[i]*meanI[i]
	})

	box.Mean(a, a)
	box.Mean(b, b)

	q := make([]float64, len(p))
	f.rows(box, func(i int) {
		q[i] = a[i]*I[i] + b[i]
	})
	return q
}

func (f *Filters) guidedColor(box *boxFilter, I [][]float64, p []float64, eps float64) ([]float64, int64) {
	meanI := [3][]float64{box.MeanOf(I[0]), box.MeanOf(I[1]), box.MeanOf(I[2])}
	meanP := box.MeanOf(p)

	var corrIP [3][]float64
	for k := range corrIP {
		corrIP[k] = box.MeanOfProduct(I[k], p)
	}

	// upper triangle of the guide covariance: rr rg rb gg gb bb
	pairs := [6][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 2}, {2, 2}}
	var corrII [6][]float64
	for k, pair := range pairs {
		corrII[k] = box.MeanOfProduct(I[pair[0]], I[pair[1]])
	}

	a := [3][]float64{make([]float64, len(p)), make([]float64, len(p)), make([]float64, len(p))}
	b := make([]float64, len(p))
	var degenerate atomic.Int64

	f.rows(box, func(i int) {
		var cov [6]float64
		for k, pair := range pairs {
			cov[k] = corrII[k][i] - meanI[pair[0]][i]*meanI[pair[1]][i]
		}
		rr, rg, rb := cov[0]+eps, cov[1], cov[2]
		gg, gb := cov[3]+eps, cov[4]
		bb := cov[5] + eps

		var covIP [3]float64
		for k := range covIP {
			covIP[k] = corrIP[k][i] - meanI[k][i]*meanP[i]
		}

		// adjugate of the symmetric 3x3 matrix
		invRR := gg*bb - gb*gb
		invRG := gb*rb - rg*bb
		invRB := rg*gb - gg*rb
		invGG := rr*bb - rb*rb
		invGB := rb*rg - rr*gb
		invBB := rr*gg - rg*rg
		det := rr*invRR + rg*invRG + rb*invRB

		if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			a[0][i], a[1][i], a[2][i] = 0, 0, 0
			b[i] = meanP[i]
			degenerate.Add(1)
			return
		}

		a[0][i] = (invRR*covIP[0] + invRG*covIP[1] + invRB*covIP[2]) / det
		a[1][i] = (invRG*covIP[0] + invGG*covIP[1] + invGB*covIP[2]) / det
		a[2][i] = (invRB*covIP[0] + invGB*covIP[1] + invBB*covIP[2]) / det
		b[i] = meanP[i] - a[0][i]*meanI[0][i] - a[1][i]*meanI[1][i] - a[2][i]*meanI[2][i]
	})

	for k := range a {
		box.Mean(a[k], a[k])
	}
	box.Mean(b, b)

	q := make([]float64, len(p))
	f.rows(box, func(i int) {
		q[i] = a[0][i]*I[0][i] + a[1][i]*I[1][i] + a[2][i]*I[2][i] + b[i]
	})
	return q, degenerate.Load()
}

// rows runs fn for every pixel index, split by rows across the pool
func (f *Filters) rows(box *boxFilter, fn func(i int)) {
	width := box.width
	f.pool.ParallelFor(box.height, func(start, end int) {
		for i := start * width; i < end*width; i++ {
			fn(i)
		}
	})
}
