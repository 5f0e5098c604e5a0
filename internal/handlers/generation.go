package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/generator"
	"github.com/temcen/copyink/internal/middleware"
	"github.com/temcen/copyink/pkg/models"
)

// GenerationService is implemented by *services.GenerationOrchestrator.
type GenerationService interface {
	Generate(ctx context.Context, userID string, req models.GenerationRequest) (*models.GenerationResult, error)
	Usage(ctx context.Context, userID string) (*models.QuotaRecord, error)
	SetPlan(ctx context.Context, userID string, plan models.PlanName) error
}

type GenerationHandler struct {
	service GenerationService
	logger  *logrus.Logger
}

func NewGenerationHandler(service GenerationService, logger *logrus.Logger) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *GenerationHandler) Hooks(c *gin.Context) {
	h.generate(c, models.ContentTypeHook)
}

func (h *GenerationHandler) CTAs(c *gin.Context) {
	h.generate(c, models.ContentTypeCTA)
}

func (h *GenerationHandler) Hashtags(c *gin.Context) {
	h.generate(c, models.ContentTypeHashtag)
}

func (h *GenerationHandler) Captions(c *gin.Context) {
	h.generate(c, models.ContentTypeCaption)
}

// Replies drafts answers to a customer inquiry.
func (h *GenerationHandler) Replies(c *gin.Context) {
	h.generate(c, models.ContentTypeReply)
}

func (h *GenerationHandler) generate(c *gin.Context, ct models.ContentType) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in generation request")
		c.JSON(http.StatusBadRequest, gin.H{
			"message": invalidRequestMessage,
			"details": gin.H{"body": err.Error()},
		})
		return
	}
	req.ContentType = ct

	result, err := h.service.Generate(c.Request.Context(), identity.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var items interface{} = result.Items
	switch ct {
	case models.ContentTypeCaption:
		items = result.Captions
	case models.ContentTypeReply:
		items = result.Replies
	}

	c.JSON(http.StatusOK, gin.H{
		ct.Endpoint(): items,
		"meta":        buildMeta(req, result),
	})
}

// buildMeta echoes the request fields next to the result diagnostics.
func buildMeta(req models.GenerationRequest, result *models.GenerationResult) gin.H {
	meta := gin.H{
		"source":           result.Source,
		"filtered_count":   result.Diagnostics.FilteredCount,
		"duplicate_count":  result.Diagnostics.DuplicateCount,
		"backfilled_count": result.Diagnostics.BackfilledCount,
	}

	fields := map[string]string{
		"goal":     string(req.Goal),
		"industry": string(req.Industry.OrOther()),
		"tone":     string(req.Tone),
		"path":     string(req.Path),
		"deadline": req.Deadline,
		"length":   string(req.Length),
		"topic":    req.Topic,

		"replyTone": string(req.ReplyTone),
	}
	for _, name := range requestFields(req.ContentType) {
		if value := fields[name]; value != "" {
			meta[name] = value
		}
	}

	if result.Diagnostics.Error != "" {
		meta["error"] = result.Diagnostics.Error
		meta["attempts"] = result.Diagnostics.Attempts
	}
	if result.Diagnostics.QuotaCommitFailed {
		meta["quota_commit_failed"] = true
	}

	switch req.ContentType {
	case models.ContentTypeHashtag:
		meta["distribution"] = generator.HashtagDistribution
	case models.ContentTypeCaption:
		meta["length_ranges"] = generator.CaptionLengthRanges
	}

	return meta
}

func requestFields(ct models.ContentType) []string {
	switch ct {
	case models.ContentTypeHook:
		return []string{"topic", "goal", "industry", "tone"}
	case models.ContentTypeCTA:
		return []string{"topic", "goal", "industry", "path", "deadline"}
	case models.ContentTypeHashtag:
		return []string{"topic", "industry"}
	case models.ContentTypeCaption:
		return []string{"topic", "goal", "industry", "tone", "length"}
	case models.ContentTypeReply:
		return []string{"replyTone"}
	default:
		return nil
	}
}
