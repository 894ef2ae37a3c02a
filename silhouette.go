package abstractcluster

import (
	"math"
	"sort"
)

// SilhouetteReport is the silhouette of one labelling over its non-noise points.
type SilhouetteReport struct {
	Mean    float64
	Samples []float64       // per point, NaN for noise
	ByLabel map[int]float64 // mean over each cluster's members
}

// Silhouette scores labels against dm using only non-noise points. The
// second return is false when fewer than two non-noise points or fewer than
// two distinct labels exist, in which case the score is undefined.
func Silhouette(dm *DistanceMatrix, labels []int) (SilhouetteReport, bool) {
	var members []int
	sizes := make(map[int]int)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		members = append(members, i)
		sizes[l]++
	}
	if len(members) < 2 || len(sizes) < 2 {
		return SilhouetteReport{}, false
	}

	clusters := make([]int, 0, len(sizes))
	for l := range sizes {
		clusters = append(clusters, l)
	}
	sort.Ints(clusters)

	samples := make([]float64, len(labels))
	for i := range samples {
		samples[i] = math.NaN()
	}
	sums := make(map[int]float64, len(clusters))
	var total float64

	for _, i := range members {
		dist := make(map[int]float64, len(clusters))
		for _, j := range members {
			if i != j {
				dist[labels[j]] += dm.At(i, j)
			}
		}

		own := labels[i]
		s := 0.0
		if sizes[own] > 1 {
			a := dist[own] / float64(sizes[own]-1)
			b := math.Inf(1)
			for _, l := range clusters {
				if l == own {
					continue
				}
				b = math.Min(b, dist[l]/float64(sizes[l]))
			}
			if m := math.Max(a, b); m > 0 {
				s = (b - a) / m
			}
		}
		samples[i] = s
		sums[own] += s
		total += s
	}

	byLabel := make(map[int]float64, len(clusters))
	for _, l := range clusters {
		byLabel[l] = sums[l] / float64(sizes[l])
	}
	return SilhouetteReport{
		Mean:    total / float64(len(members)),
		Samples: samples,
		ByLabel: byLabel,
	}, true
}
