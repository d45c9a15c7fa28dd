package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chainproof/walletscore/internal/canonical"
	"github.com/chainproof/walletscore/internal/features"
	"github.com/chainproof/walletscore/internal/logging"
	"github.com/chainproof/walletscore/internal/metrics"
	"github.com/chainproof/walletscore/internal/scoring"
	"github.com/chainproof/walletscore/internal/validation"
)

// scoreResponse is the caller-facing shape: the signed score plus unsigned
// metadata. Only the signed_score fields are covered by the signature.
type scoreResponse struct {
	SignedScore interface{}   `json:"signed_score"`
	Metadata    scoreMetadata `json:"metadata"`
}

type scoreMetadata struct {
	Breakdown   scoring.ScoreBreakdown  `json:"breakdown"`
	Reasoning   string                  `json:"reasoning"`
	RiskFactors []string                `json:"risk_factors"`
	Strengths   []string                `json:"strengths"`
	RiskLevel   string                  `json:"risk_level"`
	Features    features.WalletFeatures `json:"features"`
	Fallback    bool                    `json:"fallback"`
}

type scoreRequest struct {
	Address       string                       `json:"address" binding:"required"`
	Questionnaire []scoring.QuestionnaireEntry `json:"questionnaire"`
}

func (s *Server) scoreByQueryHandler(c *gin.Context) {
	address := validation.SanitizeAddress(c.Query("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}
	s.score(c, address, nil)
}

func (s *Server) scoreWithQuestionnaireHandler(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "address is required",
		})
		return
	}
	address := validation.SanitizeAddress(req.Address)
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}
	s.score(c, address, req.Questionnaire)
}

// score runs the full pipeline: fetch activity document, extract features,
// generate a validated score, sign the canonical envelope, respond. Upstream
// and model failures degrade; this handler never returns a hard error for
// them.
func (s *Server) score(c *gin.Context, address string, questionnaire []scoring.QuestionnaireEntry) {
	ctx := c.Request.Context()
	log := logging.L(ctx)

	var f features.WalletFeatures
	doc, err := s.aggregator.Fetch(ctx, address)
	if err != nil {
		log.Warn("activity document unavailable, scoring from empty features",
			"wallet", address, "error", err)
		f = features.Extract(nil)
	} else {
		f = features.Extract(doc)
	}

	result := s.engine.GenerateScore(ctx, address, f, questionnaire)

	env := canonical.NewScoreEnvelope(
		uint64(result.Score),
		address,
		uint64(time.Now().UnixMilli()),
	)
	signed, err := s.signer.Sign(env)
	if err != nil {
		log.Error("signing failed", "wallet", address, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "signing_failed",
			"message": "could not sign the score",
		})
		return
	}

	metrics.ScoresIssuedTotal.Inc()
	log.Info("score issued",
		"wallet", address,
		"score", result.Score,
		"fallback", result.Fallback,
	)

	c.JSON(http.StatusOK, scoreResponse{
		SignedScore: signed,
		Metadata: scoreMetadata{
			Breakdown:   result.Breakdown,
			Reasoning:   result.Reasoning,
			RiskFactors: result.RiskFactors,
			Strengths:   result.Strengths,
			RiskLevel:   scoring.RiskLevel(result.Score),
			Features:    f,
			Fallback:    result.Fallback,
		},
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	envService := "connected"
	if err := s.completions.Ping(ctx); err != nil {
		status = "degraded"
		envService = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              status,
		"environment_service": envService,
	})
}

func (s *Server) publicKeyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"public_key": s.signer.PublicKeyHex()})
}
