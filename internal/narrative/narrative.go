// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package narrative produces wait-time predictions and dashboard summaries.
//
// Dates and confidence labels are computed here from statistics. A
// Generator only supplies the explanatory prose; when it is missing or
// fails, a canned message in the requested locale is used instead.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/classify"
	"github.com/wingedpig/casewatch/internal/duration"
)

// Confidence labels a prediction by the size of its sample.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceFor returns High for samples above 15, Medium above 5 and Low
// otherwise.
func ConfidenceFor(n int) Confidence {
	switch {
	case n > 15:
		return ConfidenceHigh
	case n > 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Generator writes advisory prose.
type Generator interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	Predict(ctx context.Context, req PredictionRequest) (string, error)
}

// SummaryRequest is what a Generator sees when summarising the dashboard.
type SummaryRequest struct {
	Stats  classify.Stats `json:"stats"`
	Sample []cases.Case   `json:"sample"`
	Locale string         `json:"locale"`
}

// PredictionRequest is what a Generator sees when explaining a prediction.
// The date and confidence are final.
type PredictionRequest struct {
	Case       cases.Case     `json:"case"`
	Stats      classify.Stats `json:"stats"`
	Date       string         `json:"date"`
	Confidence Confidence     `json:"confidence"`
	Locale     string         `json:"locale"`
}

// Prediction is the expected decision date for a case.
type Prediction struct {
	Date       string     `json:"date,omitempty"`
	Confidence Confidence `json:"confidence"`
	Anchor     string     `json:"anchor,omitempty"`
	MeanDays   int        `json:"mean_days"`
	SampleSize int        `json:"sample_size"`
	Reasoning  string     `json:"reasoning"`
	Generated  bool       `json:"generated"`
}

// Summary is the dashboard narrative.
type Summary struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

// sampleFor picks the historical wait that matches the case's anchor.
func sampleFor(c cases.Case, stats classify.Stats) classify.Summary {
	if c.Timeline.ProtocolReceived != "" {
		return stats.ProtocolToApproval
	}
	return stats.SubmissionToApproval
}

// Predict computes the expected decision date for c: its anchor date plus
// the rounded mean of the matching historical sample. gen may be nil.
func Predict(ctx context.Context, gen Generator, c cases.Case, stats classify.Stats, locale string) Prediction {
	locale = duration.NormalizeLocale(locale)
	sample := sampleFor(c, stats)
	p := Prediction{
		Confidence: ConfidenceFor(sample.Count),
		Anchor:     c.Timeline.Anchor(),
		MeanDays:   sample.MeanDays,
		SampleSize: sample.Count,
	}
	if anchor, ok := duration.ParseDate(p.Anchor); ok && sample.Count > 0 {
		p.Date = anchor.AddDate(0, 0, sample.MeanDays).Format(time.DateOnly)
	}

	if gen != nil && p.Date != "" {
		text, err := gen.Predict(ctx, PredictionRequest{
			Case:       c.Public(),
			Stats:      stats,
			Date:       p.Date,
			Confidence: p.Confidence,
			Locale:     locale,
		})
		if err == nil && text != "" {
			p.Reasoning = text
			p.Generated = true
			return p
		}
		if err != nil {
			slog.Warn("narrative generator failed, using canned prediction text", "case", c.ID, "error", err)
		}
	}
	p.Reasoning = cannedPrediction(p, locale)
	return p
}

// Summarize describes stats. sample is passed to the generator with
// contacts removed; gen may be nil.
func Summarize(ctx context.Context, gen Generator, stats classify.Stats, sample []cases.Case, locale string) Summary {
	locale = duration.NormalizeLocale(locale)
	if gen != nil {
		public := make([]cases.Case, len(sample))
		for i, c := range sample {
			public[i] = c.Public()
		}
		text, err := gen.Summarize(ctx, SummaryRequest{Stats: stats, Sample: public, Locale: locale})
		if err == nil && text != "" {
			return Summary{Text: text, Generated: true}
		}
		if err != nil {
			slog.Warn("narrative generator failed, using canned summary", "error", err)
		}
	}
	return Summary{Text: cannedSummary(stats, locale)}
}

type cannedText struct {
	prediction string // date, mean duration, sample size
	noData     string
	summary    string // active cases, mean wait
}

var canned = map[string]cannedText{
	"en": {
		prediction: "Expected around %s, based on an average wait of %s across %d similar cases.",
		noData:     "There is not enough data yet to estimate a decision date.",
		summary:    "%d active cases. Average wait from submission to approval: %s.",
	},
	"es": {
		prediction: "Previsto hacia el %s, según una espera media de %s en %d casos similares.",
		noData:     "Todavía no hay datos suficientes para estimar una fecha de resolución.",
		summary:    "%d casos activos. Espera media desde la solicitud hasta la aprobación: %s.",
	},
	"pt": {
		prediction: "Previsto por volta de %s, com base numa espera média de %s em %d casos semelhantes.",
		noData:     "Ainda não há dados suficientes para estimar uma data de decisão.",
		summary:    "%d casos ativos. Espera média entre o pedido e a aprovação: %s.",
	},
}

func cannedPrediction(p Prediction, locale string) string {
	t := canned[locale]
	if p.Date == "" {
		return t.noData
	}
	return fmt.Sprintf(t.prediction,
		duration.FormatDate(p.Date, locale),
		duration.FormatDuration(duration.Of(p.MeanDays), locale),
		p.SampleSize)
}

func cannedSummary(stats classify.Stats, locale string) string {
	t := canned[locale]
	wait := duration.Placeholder(locale)
	if stats.SubmissionToApproval.Count > 0 {
		wait = duration.FormatDuration(duration.Of(stats.SubmissionToApproval.MeanDays), locale)
	}
	return fmt.Sprintf(t.summary, stats.Active, wait)
}
