package analytics

import (
	"time"
)

// CountPoint is one bucket of a download series.
type CountPoint struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// AveragePoint is one bucket of an average rating series.
type AveragePoint struct {
	Period  string  `json:"period"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// RatingSample is a review rating at a point in time.
type RatingSample struct {
	Rating    int
	CreatedAt time.Time
}

// RatingBucket is one bar of the rating histogram.
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// CountSeries buckets timestamps, zero-filling empty buckets.
func CountSeries(times []time.Time, r Range, interval Interval) []CountPoint {
	in := make([]time.Time, 0, len(times))
	for _, t := range times {
		if r.Contains(t) {
			in = append(in, t.UTC())
		}
	}
	first, last, ok := bounds(r, in)
	if !ok {
		return []CountPoint{}
	}

	counts := make(map[time.Time]int64)
	for _, t := range in {
		counts[BucketStart(t, interval)]++
	}

	buckets := Buckets(first, last, interval)
	out := make([]CountPoint, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, CountPoint{Period: Period(b), Count: counts[b]})
	}
	return out
}

// AverageSeries buckets ratings and averages each bucket. Empty buckets
// average 0 with count 0.
func AverageSeries(samples []RatingSample, r Range, interval Interval) []AveragePoint {
	in := make([]RatingSample, 0, len(samples))
	times := make([]time.Time, 0, len(samples))
	for _, s := range samples {
		if r.Contains(s.CreatedAt) {
			in = append(in, s)
			times = append(times, s.CreatedAt.UTC())
		}
	}
	first, last, ok := bounds(r, times)
	if !ok {
		return []AveragePoint{}
	}

	sums := make(map[time.Time]int64)
	counts := make(map[time.Time]int64)
	for _, s := range in {
		b := BucketStart(s.CreatedAt, interval)
		sums[b] += int64(s.Rating)
		counts[b]++
	}

	buckets := Buckets(first, last, interval)
	out := make([]AveragePoint, 0, len(buckets))
	for _, b := range buckets {
		p := AveragePoint{Period: Period(b), Count: counts[b]}
		if p.Count > 0 {
			p.Average = float64(sums[b]) / float64(p.Count)
		}
		out = append(out, p)
	}
	return out
}

// Distribution counts ratings 1 through 5. All five bars are always present.
func Distribution(samples []RatingSample, r Range) []RatingBucket {
	out := make([]RatingBucket, 5)
	for i := range out {
		out[i].Rating = i + 1
	}
	for _, s := range samples {
		if s.Rating < 1 || s.Rating > 5 || !r.Contains(s.CreatedAt) {
			continue
		}
		out[s.Rating-1].Count++
	}
	return out
}
