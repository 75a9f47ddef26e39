// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"math"
	"sort"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/duration"
)

// Summary describes a numeric sample of day counts.
//
// StdDev is the population standard deviation (variance divided by N, not
// N-1): the sample is the whole community, not an estimate of it.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	MeanDays int     `json:"mean_days"`
	Mode     int     `json:"mode"`
	StdDev   float64 `json:"std_dev"`
}

// Summarize computes a Summary. Negative, NaN and infinite values indicate
// bad data and are dropped before aggregation.
func Summarize(values []float64) Summary {
	sample := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		sample = append(sample, v)
	}
	if len(sample) == 0 {
		return Summary{}
	}

	var sum float64
	for _, v := range sample {
		sum += v
	}
	n := float64(len(sample))
	mean := sum / n

	var sq float64
	for _, v := range sample {
		sq += (v - mean) * (v - mean)
	}

	return Summary{
		Count:    len(sample),
		Mean:     mean,
		MeanDays: int(math.Round(mean)),
		Mode:     mode(sample),
		StdDev:   math.Sqrt(sq / n),
	}
}

// mode returns the most frequent rounded value; ties go to the smallest.
func mode(sample []float64) int {
	freq := make(map[int]int, len(sample))
	for _, v := range sample {
		freq[int(math.Round(v))]++
	}
	best, bestN := 0, 0
	for v, n := range freq {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats is the aggregate view shown on the dashboard.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Ghosts   int `json:"ghosts"`
	Stale    int `json:"stale"`
	Terminal int `json:"terminal"`

	SubmissionToApproval Summary `json:"submission_to_approval"`
	ProtocolToApproval   Summary `json:"protocol_to_approval"`
	SubmissionToProtocol Summary `json:"submission_to_protocol"`

	ByCategory     []Bucket `json:"by_category"`
	ByJurisdiction []Bucket `json:"by_jurisdiction"`
	ByStatus       []Bucket `json:"by_status"`
	ByMonth        []Bucket `json:"by_month"`
}

// Compute aggregates list at now. Soft-deleted cases are ignored. Wait-time
// summaries are drawn from the active set so that ghosts and paused cases do
// not skew the headline numbers.
func Compute(list []cases.Case, now time.Time) Stats {
	var st Stats
	var subToAppr, protoToAppr, subToProto []float64
	byCategory := map[string]int{}
	byJurisdiction := map[string]int{}
	byStatus := map[string]int{}
	byMonth := map[string]int{}

	for _, c := range list {
		if c.IsDeleted() {
			continue
		}
		st.Total++
		ghost := IsGhost(c, now)
		if ghost {
			st.Ghosts++
		}
		if IsStale(c, now) {
			st.Stale++
		}
		if c.Status.Terminal() {
			st.Terminal++
		}

		byCategory[string(c.Category)]++
		byJurisdiction[c.Jurisdiction]++
		byStatus[string(c.Status)]++
		if t, ok := duration.ParseDate(c.Timeline.Submitted); ok {
			byMonth[t.Format("2006-01")]++
		}

		if !IsActive(c, now) {
			continue
		}
		st.Active++

		tl := c.Timeline
		if c.Status == cases.StatusApproved {
			if d := duration.DaysBetween(tl.Submitted, tl.Approved); d.Valid {
				subToAppr = append(subToAppr, float64(d.N))
			}
			if d := duration.DaysBetween(tl.ProtocolReceived, tl.Approved); d.Valid {
				protoToAppr = append(protoToAppr, float64(d.N))
			}
		}
		if d := duration.DaysBetween(tl.Submitted, tl.ProtocolReceived); d.Valid {
			subToProto = append(subToProto, float64(d.N))
		}
	}

	st.SubmissionToApproval = Summarize(subToAppr)
	st.ProtocolToApproval = Summarize(protoToAppr)
	st.SubmissionToProtocol = Summarize(subToProto)
	st.ByCategory = buckets(byCategory, false)
	st.ByJurisdiction = buckets(byJurisdiction, false)
	st.ByStatus = buckets(byStatus, false)
	st.ByMonth = buckets(byMonth, true)
	return st
}

// buckets orders groups by descending count then key, or by key when
// chronological is set.
func buckets(m map[string]int, chronological bool) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, n := range m {
		out = append(out, Bucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if !chronological && out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
