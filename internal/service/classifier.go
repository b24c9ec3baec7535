package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/llmjson"
	"github.com/Strob0t/Boardroom/internal/port/completion"
)

// Classifier scores decisions for execution risk. Classify never returns an
// error: a failed provider call or unparseable output yields the
// conservative default, which requires at least user notification.
type Classifier struct {
	provider completion.Provider
	cfg      config.Discussion

	now func() time.Time
}

// NewClassifier creates a risk classifier.
func NewClassifier(provider completion.Provider, cfg config.Discussion) *Classifier {
	return &Classifier{provider: provider, cfg: cfg, now: time.Now}
}

// classifierOutput is the wire shape the model is asked for.
type classifierOutput struct {
	Factors struct {
		ImpactScope     factorOutput `json:"impact_scope"`
		Reversibility   factorOutput `json:"reversibility"`
		FinancialImpact factorOutput `json:"financial_impact"`
		SecurityImpact  factorOutput `json:"security_impact"`
		LegalRisk       factorOutput `json:"legal_risk"`
	} `json:"factors"`
}

type factorOutput struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Classify scores one decision.
func (c *Classifier) Classify(ctx context.Context, in decision.Input) *decision.Classification {
	id := uuid.NewString()
	system, user := buildClassifierPrompt(in)

	result, err := c.provider.Complete(ctx, completion.Request{
		System:      system,
		User:        user,
		Model:       c.cfg.ClassifierModel,
		Temperature: 0.1,
		MaxTokens:   768,
	})
	if err != nil {
		slog.Warn("classification call failed, using conservative default",
			"decision", in.Title, "error", err)
		return decision.ConservativeDefault(id, in.Title, c.now().UTC())
	}

	out, err := llmjson.Decode[classifierOutput](result.Content)
	if err != nil {
		slog.Warn("classification output unparseable, using conservative default",
			"decision", in.Title, "error", err, "content", truncate(result.Content, 200))
		return decision.ConservativeDefault(id, in.Title, c.now().UTC())
	}

	factors := [5]decision.RiskFactor{
		{Score: out.Factors.ImpactScope.Score, Reason: out.Factors.ImpactScope.Reason},
		{Score: out.Factors.Reversibility.Score, Reason: out.Factors.Reversibility.Reason},
		{Score: out.Factors.FinancialImpact.Score, Reason: out.Factors.FinancialImpact.Reason},
		{Score: out.Factors.SecurityImpact.Score, Reason: out.Factors.SecurityImpact.Reason},
		{Score: out.Factors.LegalRisk.Score, Reason: out.Factors.LegalRisk.Reason},
	}
	return decision.New(id, in.Title, factors, c.now().UTC())
}
