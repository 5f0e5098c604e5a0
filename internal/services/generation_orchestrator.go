package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/fallback"
	"github.com/temcen/copyink/internal/generator"
	"github.com/temcen/copyink/internal/policy"
	"github.com/temcen/copyink/internal/validation"
	"github.com/temcen/copyink/pkg/models"
)

// ContentGenerator produces schema-conforming output. *generator.Generator
// implements it.
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string, schema *validation.OutputSchema, out any) error
}

type UsagePublisher interface {
	PublishUsage(ctx context.Context, event models.UsageEvent) error
}

// GenerationDeps wires the orchestrator. Generator and Publisher are
// optional: without a generator every request is served from the catalog.
type GenerationDeps struct {
	Validator *validator.Validate
	Schemas   *validation.SchemaValidator
	Generator ContentGenerator
	Policy    *policy.ContentPolicy
	Catalog   *fallback.Catalog
	Quota     QuotaStore
	Limiter   RateLimiter
	Publisher UsagePublisher
	Metrics   *MetricsCollector
	Logger    *logrus.Logger
}

// GenerationOrchestrator runs one request through validation, the rate
// and quota gates, generation, filtering, backfill and accounting.
type GenerationOrchestrator struct {
	validator *validator.Validate
	schemas   *validation.SchemaValidator
	generator ContentGenerator
	policy    *policy.ContentPolicy
	catalog   *fallback.Catalog
	quota     QuotaStore
	limiter   RateLimiter
	publisher UsagePublisher
	metrics   *MetricsCollector
	logger    *logrus.Logger
}

func NewGenerationOrchestrator(deps GenerationDeps) *GenerationOrchestrator {
	return &GenerationOrchestrator{
		validator: deps.Validator,
		schemas:   deps.Schemas,
		generator: deps.Generator,
		policy:    deps.Policy,
		catalog:   deps.Catalog,
		quota:     deps.Quota,
		limiter:   deps.Limiter,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// Usage returns the caller's quota record for the current period.
func (o *GenerationOrchestrator) Usage(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	return o.quota.Get(ctx, userID)
}

func (o *GenerationOrchestrator) SetPlan(ctx context.Context, userID string, plan models.PlanName) error {
	return o.quota.SetPlan(ctx, userID, plan)
}

// Generate returns a result holding exactly the content type's contract
// size of items. Generator failures never surface as errors; the returned
// errors are *ValidationError, ErrRateLimited, *QuotaExceededError or
// *StorageError.
func (o *GenerationOrchestrator) Generate(ctx context.Context, userID string, req models.GenerationRequest) (*models.GenerationResult, error) {
	if details, err := validation.ValidateGenerationRequest(o.validator, req); err != nil {
		o.metrics.RecordRejection(req.ContentType, "validation")
		return nil, &ValidationError{Details: details, Err: err}
	}
	req.Industry = req.Industry.OrOther()

	logger := o.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"content_type": req.ContentType,
		"industry":     req.Industry,
	})

	allowed, err := o.limiter.Allow(ctx, userID, req.ContentType.Endpoint())
	if err != nil {
		return nil, err
	}
	if !allowed {
		o.metrics.RecordRejection(req.ContentType, "rate_limited")
		return nil, ErrRateLimited
	}

	record, err := o.quota.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.Remaining <= 0 {
		o.metrics.RecordRejection(req.ContentType, "quota_exceeded")
		return nil, &QuotaExceededError{Record: record}
	}

	result := &models.GenerationResult{ContentType: req.ContentType}
	switch req.ContentType {
	case models.ContentTypeCaption:
		o.runCaptions(ctx, req, result, logger)
	case models.ContentTypeReply:
		o.runReplies(ctx, req, result, logger)
	default:
		o.runItems(ctx, req, result, logger)
	}

	committed, err := o.quota.Increment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !committed {
		// Another request used the last unit between Get and Increment.
		result.Diagnostics.QuotaCommitFailed = true
		logger.Warn("Quota increment refused after generation, serving response anyway")
	}

	o.metrics.RecordResult(result)
	o.publishUsage(ctx, userID, req, result, logger)

	return result, nil
}

func (o *GenerationOrchestrator) runItems(ctx context.Context, req models.GenerationRequest, result *models.GenerationResult, logger *logrus.Entry) {
	var generated []string
	result.Source = models.SourceFallback

	if o.generator != nil {
		var out struct {
			Hooks    []string `json:"hooks"`
			CTAs     []string `json:"ctas"`
			Hashtags []string `json:"hashtags"`
		}
		if err := o.callGenerator(ctx, req, &out, result, logger); err == nil {
			switch req.ContentType {
			case models.ContentTypeHook:
				generated = out.Hooks
			case models.ContentTypeCTA:
				generated = out.CTAs
			case models.ContentTypeHashtag:
				generated = out.Hashtags
			}
		}
	}

	kept := o.filterItems(req.ContentType, generated, &result.Diagnostics)
	fallbackItems := o.catalog.Items(req)
	if req.ContentType == models.ContentTypeHashtag {
		fallbackItems = o.policy.Normalize(fallbackItems)
	}
	fallbackItems = o.cleanOnly(fallbackItems)

	items, added := backfill(kept, fallbackItems, req.ContentType.ContractSize())
	result.Items = items
	result.Diagnostics.BackfilledCount = added
}

func (o *GenerationOrchestrator) runCaptions(ctx context.Context, req models.GenerationRequest, result *models.GenerationResult, logger *logrus.Entry) {
	var generated []models.Caption
	result.Source = models.SourceFallback

	if o.generator != nil {
		var out struct {
			Captions []models.Caption `json:"captions"`
		}
		if err := o.callGenerator(ctx, req, &out, result, logger); err == nil {
			generated = out.Captions
		}
	}

	fallbackTags := o.cleanOnly(o.policy.Normalize(o.catalog.Items(models.GenerationRequest{
		ContentType: models.ContentTypeHashtag,
		Industry:    req.Industry,
	})))
	tagCount := models.ContentTypeHashtag.ContractSize()

	// Every published part must pass the policy. The text is rebuilt from
	// the parts so that it carries the normalized hashtags.
	accept := func(caption *models.Caption) bool {
		parts := &caption.Parts
		parts.Hook = strings.TrimSpace(parts.Hook)
		parts.Body = strings.TrimSpace(parts.Body)
		parts.CTA = strings.TrimSpace(parts.CTA)
		if parts.Hook == "" || parts.Body == "" || parts.CTA == "" {
			return false
		}
		if !o.policy.IsClean(caption.Text) || !o.policy.IsClean(parts.Hook) ||
			!o.policy.IsClean(parts.Body) || !o.policy.IsClean(parts.CTA) {
			return false
		}

		tags := o.filterItems(models.ContentTypeHashtag, parts.Hashtags, &models.Diagnostics{})
		parts.Hashtags, _ = backfill(tags, fallbackTags, tagCount)
		caption.Text = fallback.ComposeCaption(*parts)
		return true
	}

	kept := mergeStructured(generated,
		[][]models.Caption{o.catalog.Captions(req), o.catalog.GenericCaptions(req)},
		models.ContentTypeCaption.ContractSize(), accept,
		func(caption models.Caption) string { return caption.Text },
		&result.Diagnostics)

	result.Captions = kept
	result.Items = make([]string, len(kept))
	for i, caption := range kept {
		result.Items[i] = caption.Text
	}
}

func (o *GenerationOrchestrator) runReplies(ctx context.Context, req models.GenerationRequest, result *models.GenerationResult, logger *logrus.Entry) {
	var generated []models.Reply
	result.Source = models.SourceFallback

	if o.generator != nil {
		var out struct {
			Replies []models.Reply `json:"replies"`
		}
		if err := o.callGenerator(ctx, req, &out, result, logger); err == nil {
			generated = out.Replies
		}
	}
	for i := range generated {
		if strings.TrimSpace(generated[i].Style) == "" {
			generated[i].Style = fmt.Sprintf("AI生成パターン%d", i+1)
		}
	}

	accept := func(reply *models.Reply) bool {
		reply.Style = strings.TrimSpace(reply.Style)
		reply.Text = strings.TrimSpace(reply.Text)
		return reply.Text != "" && o.policy.IsClean(reply.Text) && o.policy.IsClean(reply.Style)
	}

	kept := mergeStructured(generated,
		[][]models.Reply{o.catalog.Replies(req), o.catalog.GenericReplies(req)},
		models.ContentTypeReply.ContractSize(), accept,
		func(reply models.Reply) string { return reply.Text },
		&result.Diagnostics)

	result.Replies = kept
	result.Items = make([]string, len(kept))
	for i, reply := range kept {
		result.Items[i] = reply.Text
	}
}

// callGenerator sets the result source and records the failure when the
// generator gives up.
func (o *GenerationOrchestrator) callGenerator(ctx context.Context, req models.GenerationRequest, out any, result *models.GenerationResult, logger *logrus.Entry) error {
	prompt, err := generator.BuildPrompt(req)
	if err == nil {
		var schema *validation.OutputSchema
		schema, err = o.schemas.ForContentType(req.ContentType)
		if err == nil {
			start := time.Now()
			err = o.generator.Generate(ctx, prompt, schema, out)
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			o.metrics.RecordGeneratorCall(req.ContentType, outcome, time.Since(start))
		}
	}

	if err != nil {
		result.Source = models.SourceFallbackAfterError
		result.Diagnostics.Error = err.Error()
		var upstream *generator.UpstreamError
		if errors.As(err, &upstream) {
			result.Diagnostics.Attempts = upstream.Attempts
		}
		logger.WithError(err).Warn("Generator failed, serving fallback copy")
		return err
	}

	result.Source = models.SourceGenerated
	return nil
}

// filterItems trims, normalizes hashtags, drops denylisted or empty items
// and removes duplicates, counting each kind of drop.
func (o *GenerationOrchestrator) filterItems(ct models.ContentType, items []string, diag *models.Diagnostics) []string {
	seen := make(map[string]struct{}, len(items))
	kept := make([]string, 0, len(items))

	for _, item := range items {
		if ct == models.ContentTypeHashtag {
			item = policy.NormalizeHashtag(item)
		} else {
			item = strings.TrimSpace(item)
		}
		if item == "" || !o.policy.IsClean(item) {
			diag.FilteredCount++
			continue
		}
		if _, dup := seen[item]; dup {
			diag.DuplicateCount++
			continue
		}
		seen[item] = struct{}{}
		kept = append(kept, item)
	}
	return kept
}

func (o *GenerationOrchestrator) cleanOnly(items []string) []string {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		if o.policy.IsClean(item) {
			clean = append(clean, item)
		}
	}
	return clean
}

// mergeStructured keeps the accepted, distinct generated entries and tops
// them up from the fallback pools, in order, to exactly size. accept may
// rewrite an entry before it is keyed. Rejected fallback entries are
// skipped without being counted.
func mergeStructured[T any](generated []T, pools [][]T, size int, accept func(*T) bool, key func(T) string, diag *models.Diagnostics) []T {
	seen := make(map[string]struct{}, size)
	kept := make([]T, 0, size)

	for _, entry := range generated {
		if !accept(&entry) {
			diag.FilteredCount++
			continue
		}
		k := key(entry)
		if _, dup := seen[k]; dup {
			diag.DuplicateCount++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, entry)
	}

	for _, pool := range pools {
		for _, entry := range pool {
			if len(kept) >= size {
				break
			}
			if !accept(&entry) {
				continue
			}
			k := key(entry)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, entry)
			diag.BackfilledCount++
		}
	}

	if len(kept) > size {
		kept = kept[:size]
	}
	return kept
}

// backfill appends fallback items not already present until size is
// reached, then truncates to exactly size. fallbackItems must hold at
// least size distinct entries for the result to be full.
func backfill(items, fallbackItems []string, size int) ([]string, int) {
	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		present[item] = struct{}{}
	}

	added := 0
	for _, item := range fallbackItems {
		if len(items) >= size {
			break
		}
		if _, ok := present[item]; ok {
			continue
		}
		present[item] = struct{}{}
		items = append(items, item)
		added++
	}

	if len(items) > size {
		items = items[:size]
	}
	return items, added
}

func (o *GenerationOrchestrator) publishUsage(ctx context.Context, userID string, req models.GenerationRequest, result *models.GenerationResult, logger *logrus.Entry) {
	if o.publisher == nil {
		return
	}

	event := models.UsageEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		ContentType:     req.ContentType,
		Industry:        req.Industry,
		Source:          result.Source,
		FilteredCount:   result.Diagnostics.FilteredCount,
		BackfilledCount: result.Diagnostics.BackfilledCount,
		QuotaCommitted:  !result.Diagnostics.QuotaCommitFailed,
		Timestamp:       time.Now(),
	}
	if err := o.publisher.PublishUsage(ctx, event); err != nil {
		o.metrics.RecordPublishFailure()
		logger.WithError(err).Warn("Failed to publish usage event")
	}
}
