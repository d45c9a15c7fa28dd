package admission

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chainproof/walletscore/internal/attestation"
	"github.com/chainproof/walletscore/internal/enclave"
	"github.com/chainproof/walletscore/internal/validation"
)

// Handlers exposes the admission service over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes mounts the admission endpoints on the given router group.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/signers", h.registerSigner)
	v1.PUT("/config", h.updateConfig)
	v1.POST("/scores", h.submitScore)
	v1.GET("/scores/latest", h.latest)
	v1.GET("/scores/:wallet", validation.WalletParamMiddleware(), h.history)
}

type registerSignerRequest struct {
	AttestationDocument json.RawMessage `json:"attestation_document" binding:"required"`
}

func (h *Handlers) registerSigner(c *gin.Context) {
	var req registerSignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "attestation_document is required")
		return
	}

	rec, err := h.svc.RegisterSigner(c.Request.Context(), req.AttestationDocument)
	if err != nil {
		switch {
		case errors.Is(err, attestation.ErrMeasurementMismatch):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "measurement_mismatch",
				"message": err.Error(),
			})
		case errors.Is(err, attestation.ErrMalformedDocument),
			errors.Is(err, attestation.ErrBadPublicKey):
			badRequest(c, err.Error())
		case errors.Is(err, enclave.ErrRecordExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "signer_exists",
				"message": "a record already exists for this public key",
			})
		case errors.Is(err, enclave.ErrNotBootstrapped):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "not_bootstrapped",
				"message": "no enclave configuration exists yet",
			})
		default:
			internalError(c)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"public_key":     hex.EncodeToString(rec.PublicKey),
		"config_version": rec.ConfigVersion,
		"registered_at":  rec.RegisteredAt,
	})
}

type updateConfigRequest struct {
	Capability   string   `json:"capability" binding:"required"`
	Measurements []string `json:"measurements" binding:"required"`
}

func (h *Handlers) updateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "capability and measurements are required")
		return
	}

	measurements := make([][]byte, 0, len(req.Measurements))
	for _, m := range req.Measurements {
		b, err := hex.DecodeString(strings.TrimPrefix(m, "0x"))
		if err != nil {
			badRequest(c, "measurements must be hex-encoded")
			return
		}
		measurements = append(measurements, b)
	}

	cfg, err := h.svc.UpdateConfig(c.Request.Context(), req.Capability, measurements)
	if err != nil {
		switch {
		case errors.Is(err, enclave.ErrBadCapability):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "invalid_capability",
				"message": "capability token does not match",
			})
		case errors.Is(err, attestation.ErrMalformedDocument):
			badRequest(c, err.Error())
		case errors.Is(err, enclave.ErrNotBootstrapped):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "not_bootstrapped",
				"message": "no enclave configuration exists yet",
			})
		default:
			internalError(c)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"version": cfg.Version, "updated_at": cfg.UpdatedAt})
}

type submitScoreRequest struct {
	Score                uint64 `json:"score"`
	WalletAddress        string `json:"wallet_address" binding:"required"`
	TimestampMS          uint64 `json:"timestamp_ms" binding:"required"`
	EnvironmentSignature string `json:"environment_signature" binding:"required"`
	WalletSignature      string `json:"wallet_signature" binding:"required"`
}

func (h *Handlers) submitScore(c *gin.Context) {
	var req submitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "score, wallet_address, timestamp_ms, and both signatures are required")
		return
	}
	if !validation.IsValidEthAddress(req.WalletAddress) {
		badRequest(c, "wallet_address must be a valid Ethereum address")
		return
	}

	envSig, err := hex.DecodeString(strings.TrimPrefix(req.EnvironmentSignature, "0x"))
	if err != nil {
		badRequest(c, "environment_signature must be hex-encoded")
		return
	}
	walletSig, err := hex.DecodeString(strings.TrimPrefix(req.WalletSignature, "0x"))
	if err != nil {
		badRequest(c, "wallet_signature must be hex-encoded")
		return
	}

	rec, err := h.svc.SubmitScore(c.Request.Context(), Submission{
		Score:                req.Score,
		WalletAddress:        req.WalletAddress,
		TimestampMS:          req.TimestampMS,
		EnvironmentSignature: envSig,
		WalletSignature:      walletSig,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedSignature):
			badRequest(c, err.Error())
		case errors.Is(err, ErrUnknownSigner):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "unknown_signer",
				"message": "no registered signer matches the environment signature",
			})
		case errors.Is(err, ErrEnvironmentSignature):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "environment_signature_invalid",
				"message": "environment signature does not verify",
			})
		case errors.Is(err, ErrOwnershipMismatch):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "ownership_mismatch",
				"message": "wallet signature does not prove control of the scored wallet",
			})
		case errors.Is(err, ErrDuplicateTimestamp):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "duplicate_timestamp",
				"message": "a score already exists for this timestamp",
			})
		default:
			internalError(c)
		}
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *Handlers) latest(c *gin.Context) {
	rec, err := h.svc.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoScores) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "no_scores",
				"message": "nothing has been admitted yet",
			})
			return
		}
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handlers) history(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	records, err := h.svc.History(c.Request.Context(), c.Param("wallet"), limit)
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msg})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "something went wrong",
	})
}
