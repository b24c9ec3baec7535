// Package decision defines risk classification for decisions extracted
// from a discussion: a 0–100 risk score mapped onto an autonomy level.
package decision

import "time"

// Level is the autonomy tier derived from the risk score.
type Level string

const (
	LevelAuto     Level = "L0_AUTO"
	LevelNotify   Level = "L1_NOTIFY"
	LevelConfirm  Level = "L2_CONFIRM"
	LevelCritical Level = "L3_CRITICAL"
)

// Recommendation is the action policy implied by a level.
type Recommendation string

const (
	RecommendAutoExecute    Recommendation = "auto_execute"
	RecommendExecuteNotify  Recommendation = "execute_notify"
	RecommendConfirmFirst   Recommendation = "confirm_first"
	RecommendCriticalReview Recommendation = "critical_review"
)

// Factor names. Every classification carries exactly these five factors.
const (
	FactorImpactScope     = "impact_scope"
	FactorReversibility   = "reversibility"
	FactorFinancialImpact = "financial_impact"
	FactorSecurityImpact  = "security_impact"
	FactorLegalRisk       = "legal_risk"
)

// FactorNames lists the five factors in canonical order.
var FactorNames = [5]string{
	FactorImpactScope,
	FactorReversibility,
	FactorFinancialImpact,
	FactorSecurityImpact,
	FactorLegalRisk,
}

// RiskFactor is one weighted component of the risk score, bounded to [0,20].
type RiskFactor struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason,omitempty"`
}

// Input describes a decision to be classified.
type Input struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Category       string `json:"category,omitempty"`
	ProposedAction string `json:"proposed_action,omitempty"`
}

// Classification is the immutable result of scoring one decision.
// Re-classification creates a new record, never mutates an existing one.
type Classification struct {
	ID             string         `json:"id"`
	DecisionTitle  string         `json:"decision_title"`
	Level          Level          `json:"level"`
	Score          int            `json:"score"`
	Factors        [5]RiskFactor  `json:"factors"`
	Recommendation Recommendation `json:"recommendation"`
	Fallback       bool           `json:"fallback,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NeedsUserConfirmation reports whether a human must confirm before any
// execution happens.
func (c *Classification) NeedsUserConfirmation() bool {
	return c.Level == LevelConfirm || c.Level == LevelCritical
}

// LevelForScore maps a clamped score onto its level and recommendation.
// The mapping is a deterministic, monotonic step function with inclusive
// thresholds: 0–20, 21–50, 51–80, 81–100.
func LevelForScore(score int) (Level, Recommendation) {
	switch {
	case score <= 20:
		return LevelAuto, RecommendAutoExecute
	case score <= 50:
		return LevelNotify, RecommendExecuteNotify
	case score <= 80:
		return LevelConfirm, RecommendConfirmFirst
	default:
		return LevelCritical, RecommendCriticalReview
	}
}

// ClampFactor bounds a single factor score to [0,20].
func ClampFactor(score int) int {
	if score < 0 {
		return 0
	}
	if score > 20 {
		return 20
	}
	return score
}

// ClampScore bounds a total score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// New builds a classification from five factor scores, clamping each factor
// and the total, and deriving the level from the thresholds.
func New(id, title string, factors [5]RiskFactor, now time.Time) *Classification {
	total := 0
	for i := range factors {
		factors[i].Score = ClampFactor(factors[i].Score)
		factors[i].Name = FactorNames[i]
		total += factors[i].Score
	}
	total = ClampScore(total)
	level, rec := LevelForScore(total)
	return &Classification{
		ID:             id,
		DecisionTitle:  title,
		Level:          level,
		Score:          total,
		Factors:        factors,
		Recommendation: rec,
		CreatedAt:      now,
	}
}

// ConservativeDefault is the fixed result returned when the provider call
// fails or its output cannot be parsed: score 35, L1_NOTIFY,
// execute_notify. Classification failure must never silently auto-execute,
// and must never abort the discussion either.
func ConservativeDefault(id, title string, now time.Time) *Classification {
	c := &Classification{
		ID:             id,
		DecisionTitle:  title,
		Level:          LevelNotify,
		Score:          35,
		Recommendation: RecommendExecuteNotify,
		Fallback:       true,
		CreatedAt:      now,
	}
	for i, name := range FactorNames {
		c.Factors[i] = RiskFactor{Name: name, Score: 7, Reason: "classification unavailable"}
	}
	return c
}
