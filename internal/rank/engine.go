// Package rank turns a posting's text into a scored, labeled evaluation.
// Everything here is pure: identical inputs and config always produce an
// identical evaluation.
package rank

import (
	"fmt"
	"strings"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
)

// Job is the slice of a posting the engine needs.
type Job struct {
	ID                 int64
	Title              string
	SourceName         string
	Location           string
	Description        string
	PartialDescription bool
}

// Maximum raw points per signal; raw scores are normalized against these
// before the configured weights apply.
const (
	maxSeniority      = 30
	maxPnL            = 20
	maxTransformation = 20
	maxIndustry       = 20
	maxGeo            = 10
)

// Action thresholds are fixed by design, not configurable.
const (
	applyThreshold = 75
	watchThreshold = 60
)

type Engine struct {
	Weights   config.ScoringWeights
	Extractor Extractor
}

func NewEngine(cfg config.Config) Engine {
	return Engine{
		Weights:   cfg.Weights,
		Extractor: Extractor{Geography: cfg.Geography},
	}
}

// Score extracts all five signals and aggregates them into an Evaluation
// ready for insert (CreatedAt/ID left for the store).
func (e Engine) Score(job Job) domain.Evaluation {
	seniority := e.Extractor.ExtractSeniority(job.Title)
	pnl := e.Extractor.ExtractPnL(job.Description)
	transformation := e.Extractor.ExtractTransformation(job.Description)
	industry := e.Extractor.ExtractIndustry(job.Description)
	geo := e.Extractor.ExtractGeo(job.Description, job.Location)

	w := e.Weights
	total := float64(seniority.Score)/maxSeniority*float64(w.Seniority) +
		float64(pnl.Score)/maxPnL*float64(w.PnL) +
		float64(transformation.Score)/maxTransformation*float64(w.Transformation) +
		float64(industry.Score)/maxIndustry*float64(w.Industry) +
		float64(geo.Score)/maxGeo*float64(w.Geo)

	if geo.Banned {
		total -= float64(w.BannedPenalty)
	}

	fit := int(total)
	if fit < 0 {
		fit = 0
	}
	if fit > 100 {
		fit = 100
	}

	action := determineAction(fit)

	return domain.Evaluation{
		PostingID:           job.ID,
		FitScore:            fit,
		SeniorityScore:      seniority.Score,
		PnLScore:            pnl.Score,
		TransformationScore: transformation.Score,
		IndustryScore:       industry.Score,
		GeoScore:            geo.Score,
		Action:              action,
		Summary:             buildSummary(job, seniority, pnl, transformation, industry, geo, action, fit),
		Concerns:            buildConcerns(job, seniority, pnl, transformation, industry, geo),
	}
}

func determineAction(score int) string {
	switch {
	case score >= applyThreshold:
		return domain.ActionApply
	case score >= watchThreshold:
		return domain.ActionWatch
	default:
		return domain.ActionSkip
	}
}

// buildConcerns checks six conditions in a fixed order; the order is the
// listing order, not a severity ranking.
func buildConcerns(job Job, seniority SenioritySignal, pnl PnLSignal,
	transformation TransformationSignal, industry IndustrySignal, geo GeoSignal) []domain.Concern {

	var concerns []domain.Concern

	if seniority.Score < 20 {
		concerns = append(concerns, domain.Concern{
			Type:     "Below target seniority",
			Evidence: fmt.Sprintf("Title: %s", job.Title),
		})
	}
	if pnl.Score == 0 {
		concerns = append(concerns, domain.Concern{
			Type:     "No P&L ownership",
			Evidence: "No mention of P&L, profitability, or budget control",
		})
	}
	if transformation.Score == 0 {
		concerns = append(concerns, domain.Concern{
			Type:     "No transformation mandate",
			Evidence: "No mention of digital transformation or modernization",
		})
	}
	if industry.Score < 10 {
		concerns = append(concerns, domain.Concern{
			Type:     "No industry match",
			Evidence: "No mention of industrial IoT, manufacturing, or hardware",
		})
	}
	if geo.Banned {
		evidence := geo.Evidence
		if evidence == "" {
			evidence = fmt.Sprintf("Location: %s", job.Location)
		}
		concerns = append(concerns, domain.Concern{
			Type:     "Banned geography",
			Evidence: evidence,
		})
	}
	if job.PartialDescription {
		concerns = append(concerns, domain.Concern{
			Type:     "Incomplete description",
			Evidence: "Full job description text not available",
		})
	}

	return concerns
}

func buildSummary(job Job, seniority SenioritySignal, pnl PnLSignal,
	transformation TransformationSignal, industry IndustrySignal, geo GeoSignal,
	action string, score int) string {

	var strengths []string
	if pnl.Score >= 15 {
		strengths = append(strengths, "P&L ownership")
	}
	if transformation.Score >= 20 {
		strengths = append(strengths, "transformation mandate")
	}
	if industry.Score >= 20 {
		strengths = append(strengths, "industry match")
	}
	if geo.Score >= 10 {
		strengths = append(strengths, "geographic scope")
	}
	if seniority.Score >= 25 {
		strengths = append(strengths, "senior level")
	}

	topStrengths := "none"
	if len(strengths) > 0 {
		if len(strengths) > 2 {
			strengths = strengths[:2]
		}
		topStrengths = strings.Join(strengths, ", ")
	}

	topConcern := "none"
	switch {
	case seniority.Score < 20:
		topConcern = "below target seniority"
	case pnl.Score == 0:
		topConcern = "no P&L ownership"
	case transformation.Score == 0:
		topConcern = "no transformation mandate"
	case industry.Score < 10:
		topConcern = "no industry match"
	case geo.Banned:
		topConcern = "banned geography"
	}

	return fmt.Sprintf("Role: %s at %s in %s. Fit: %s. Gap: %s. Action: %s. Score: %d.",
		job.Title, job.SourceName, job.Location, topStrengths, topConcern, action, score)
}
