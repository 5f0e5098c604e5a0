package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/copyink/internal/fallback"
	"github.com/temcen/copyink/internal/generator"
	"github.com/temcen/copyink/internal/policy"
	"github.com/temcen/copyink/internal/validation"
	"github.com/temcen/copyink/pkg/models"
)

// fakeGenerator decodes a canned payload into the caller's output.
type fakeGenerator struct {
	payload string
	err     error
	calls   int
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, schema *validation.OutputSchema, out any) error {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.payload), out)
}

func payload(t *testing.T, field string, items any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{field: items})
	require.NoError(t, err)
	return string(data)
}

type MockUsagePublisher struct {
	mock.Mock
}

func (m *MockUsagePublisher) PublishUsage(ctx context.Context, event models.UsageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// stubQuotaStore returns fixed answers so the accounting branches can be
// reached without racing real requests.
type stubQuotaStore struct {
	record       *models.QuotaRecord
	getErr       error
	committed    bool
	incrementErr error
	increments   int
}

func (s *stubQuotaStore) Get(context.Context, string) (*models.QuotaRecord, error) {
	return s.record, s.getErr
}

func (s *stubQuotaStore) Increment(context.Context, string) (bool, error) {
	s.increments++
	return s.committed, s.incrementErr
}

func (s *stubQuotaStore) SetPlan(context.Context, string, models.PlanName) error {
	return nil
}

type orchestratorFixture struct {
	generator *fakeGenerator
	quota     QuotaStore
	limiter   RateLimiter
	publisher UsagePublisher
}

func newTestOrchestrator(t *testing.T, f orchestratorFixture) *GenerationOrchestrator {
	t.Helper()

	schemas, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	if f.quota == nil {
		f.quota = NewMemoryQuotaStore(nil, time.UTC)
	}
	if f.limiter == nil {
		f.limiter = DisabledRateLimiter{}
	}

	deps := GenerationDeps{
		Validator: validation.NewRequestValidator(),
		Schemas:   schemas,
		Policy:    policy.NewDefault(),
		Catalog:   fallback.New(),
		Quota:     f.quota,
		Limiter:   f.limiter,
		Publisher: f.publisher,
		Metrics:   NewMetricsCollector(prometheus.NewRegistry()),
		Logger:    testLogger(),
	}
	if f.generator != nil {
		deps.Generator = f.generator
	}
	return NewGenerationOrchestrator(deps)
}

func hookRequest() models.GenerationRequest {
	return models.GenerationRequest{
		ContentType: models.ContentTypeHook,
		Goal:        models.GoalSave,
		Industry:    models.IndustrySalon,
		Tone:        models.ToneFriendly,
		Topic:       "新メニュー",
	}
}

func hashtagRequest() models.GenerationRequest {
	return models.GenerationRequest{
		ContentType: models.ContentTypeHashtag,
		Industry:    models.IndustrySalon,
		Topic:       "新メニュー",
	}
}

func captionRequest() models.GenerationRequest {
	return models.GenerationRequest{
		ContentType: models.ContentTypeCaption,
		Goal:        models.GoalAwareness,
		Industry:    models.IndustrySalon,
		Tone:        models.ToneEmotive,
		Topic:       "新メニュー",
		Length:      models.LengthShort,
	}
}

func replyRequest() models.GenerationRequest {
	return models.GenerationRequest{
		ContentType: models.ContentTypeReply,
		Inquiry:     "土曜日の午後は空いていますか？",
		ReplyTone:   models.ReplyTonePolite,
		Knowledge: models.BusinessKnowledge{
			BusinessType: "美容室",
			BusinessName: "サロンA",
			Services:     "カット 4,400円",
		},
	}
}

func assertNoDuplicates(t *testing.T, items []string) {
	t.Helper()
	assert.Equal(t, policy.Dedupe(items), items, "items contain duplicates")
}

func TestGenerationOrchestrator_ContractSize(t *testing.T) {
	salonHooks := fallback.New().Items(hookRequest())

	tests := []struct {
		name           string
		generated      []string
		expectedItems  []string
		expectedBackfl int
	}{
		{
			name:           "exact count",
			generated:      []string{"h1", "h2", "h3", "h4", "h5"},
			expectedItems:  []string{"h1", "h2", "h3", "h4", "h5"},
			expectedBackfl: 0,
		},
		{
			name:           "too many is truncated",
			generated:      []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8"},
			expectedItems:  []string{"h1", "h2", "h3", "h4", "h5"},
			expectedBackfl: 0,
		},
		{
			name:           "too few is backfilled",
			generated:      []string{"h1", "h2"},
			expectedItems:  append([]string{"h1", "h2"}, salonHooks[:3]...),
			expectedBackfl: 3,
		},
		{
			name:           "none is fully backfilled",
			generated:      []string{},
			expectedItems:  salonHooks,
			expectedBackfl: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{payload: payload(t, "hooks", tt.generated)}
			o := newTestOrchestrator(t, orchestratorFixture{generator: gen})

			result, err := o.Generate(context.Background(), "u1", hookRequest())
			require.NoError(t, err)

			assert.Equal(t, models.SourceGenerated, result.Source)
			assert.Equal(t, tt.expectedItems, result.Items)
			assert.Len(t, result.Items, 5)
			assert.Equal(t, tt.expectedBackfl, result.Diagnostics.BackfilledCount)
			assert.Equal(t, 1, gen.calls)
		})
	}
}

func TestGenerationOrchestrator_FiltersDenylistedAndDuplicateItems(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hooks", []string{
		"h1", "絶対に予約が埋まる", "h2", " h1 ", "h3", "１００％満足", "h4", "",
	})}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})

	result, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)

	assert.Len(t, result.Items, 5)
	assert.Equal(t, []string{"h1", "h2", "h3", "h4"}, result.Items[:4])
	assert.Equal(t, 3, result.Diagnostics.FilteredCount)
	assert.Equal(t, 1, result.Diagnostics.DuplicateCount)
	assert.Equal(t, 1, result.Diagnostics.BackfilledCount)
	assertNoDuplicates(t, result.Items)

	p := policy.NewDefault()
	for _, item := range result.Items {
		assert.True(t, p.IsClean(item), item)
	}
}

func TestGenerationOrchestrator_NormalizesHashtags(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hashtags", []string{
		"サロン", "＃美容", "#美容", " #ヘア ケア", "#",
	})}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})

	result, err := o.Generate(context.Background(), "u1", hashtagRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"#サロン", "#美容", "#ヘアケア", "#美容サロン", "#初回相談", "#今日の空き枠",
	}, result.Items)
	assert.Equal(t, 1, result.Diagnostics.FilteredCount)
	assert.Equal(t, 1, result.Diagnostics.DuplicateCount)
	assert.Equal(t, 3, result.Diagnostics.BackfilledCount)
	for _, tag := range result.Items {
		assert.True(t, strings.HasPrefix(tag, policy.HashtagMarker), tag)
		assert.NotContains(t, tag, " ")
	}
}

func TestGenerationOrchestrator_NoCredentialsServesFallback(t *testing.T) {
	o := newTestOrchestrator(t, orchestratorFixture{})

	result, err := o.Generate(context.Background(), "u1", hashtagRequest())
	require.NoError(t, err)

	assert.Equal(t, models.SourceFallback, result.Source)
	assert.Equal(t, []string{"#サロン", "#美容サロン", "#初回相談", "#今日の空き枠", "#ご褒美時間", "#ケア習慣"}, result.Items)
	assert.Equal(t, 6, result.Diagnostics.BackfilledCount)
	assert.Empty(t, result.Diagnostics.Error)
}

func TestGenerationOrchestrator_UpstreamFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: &generator.UpstreamError{
		Kind:       generator.KindRateLimited,
		StatusCode: 429,
		Attempts:   3,
		Err:        errors.New("too many requests"),
	}}
	quota := NewMemoryQuotaStore(nil, time.UTC)
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen, quota: quota})

	result, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)

	assert.Equal(t, models.SourceFallbackAfterError, result.Source)
	assert.Equal(t, fallback.New().Items(hookRequest()), result.Items)
	assert.Equal(t, 3, result.Diagnostics.Attempts)
	assert.Contains(t, result.Diagnostics.Error, "rate_limited")
	assert.Equal(t, 5, result.Diagnostics.BackfilledCount)

	// Fallback responses still count against the quota.
	record, err := quota.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Used)
}

func TestGenerationOrchestrator_CTAWithoutIndustryUsesOther(t *testing.T) {
	o := newTestOrchestrator(t, orchestratorFixture{})

	req := models.GenerationRequest{
		ContentType: models.ContentTypeCTA,
		Goal:        models.GoalConversion,
		Topic:       "無料相談",
		Path:        models.PathDM,
		Deadline:    models.DeadlineThisWeek,
	}
	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	req.Industry = models.IndustryOther
	assert.Equal(t, fallback.New().Items(req), result.Items)
	assert.Len(t, result.Items, 5)
}

func TestGenerationOrchestrator_Captions(t *testing.T) {
	parts := models.CaptionParts{
		Hook: "フック", Body: "本文", CTA: "CTA",
		Hashtags: []string{"サロン", "#サロン", "＃新メニュー"},
	}
	generated := []models.Caption{
		{Text: "生成キャプション1", Parts: parts},
		{
			Text:  "絶対にキレイになれる",
			Parts: models.CaptionParts{Hook: "x", Body: "y", CTA: "z", Hashtags: []string{"#a"}},
		},
		// Same parts as the first, so the rebuilt text is identical.
		{Text: "生成キャプション1の別案", Parts: parts},
	}
	gen := &fakeGenerator{payload: payload(t, "captions", generated)}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})
	req := captionRequest()

	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	require.Len(t, result.Captions, 3)
	require.Len(t, result.Items, 3)
	assert.Equal(t, models.SourceGenerated, result.Source)
	assert.Equal(t, 1, result.Diagnostics.FilteredCount)
	assert.Equal(t, 1, result.Diagnostics.DuplicateCount)
	assert.Equal(t, 2, result.Diagnostics.BackfilledCount)

	first := result.Captions[0]
	assert.Equal(t, []string{"#サロン", "#新メニュー", "#美容サロン", "#初回相談", "#今日の空き枠", "#ご褒美時間"}, first.Parts.Hashtags)
	assert.Equal(t, "フック\n\n本文\n\nCTA\n\n#サロン #新メニュー #美容サロン #初回相談 #今日の空き枠 #ご褒美時間", first.Text)
	assert.Equal(t, fallback.New().Captions(req)[:2], result.Captions[1:])

	for i, caption := range result.Captions {
		assert.Equal(t, caption.Text, result.Items[i])
		assert.Equal(t, fallback.ComposeCaption(caption.Parts), caption.Text)
		assert.Len(t, caption.Parts.Hashtags, 6)
	}
	assertNoDuplicates(t, result.Items)
}

func assertCleanCaptions(t *testing.T, captions []models.Caption) {
	t.Helper()
	p := policy.NewDefault()
	for _, caption := range captions {
		for _, text := range append([]string{caption.Text, caption.Parts.Hook, caption.Parts.Body, caption.Parts.CTA}, caption.Parts.Hashtags...) {
			assert.True(t, p.IsClean(text), "denylisted term in %q", text)
		}
	}
}

func TestGenerationOrchestrator_CaptionPartsMustBeClean(t *testing.T) {
	tags := []string{"#a", "#b", "#c", "#d", "#e", "#f"}
	generated := []models.Caption{
		{Text: "案1", Parts: models.CaptionParts{Hook: "絶対に効く", Body: "本文", CTA: "DMへ", Hashtags: tags}},
		{Text: "案2", Parts: models.CaptionParts{Hook: "フック", Body: "１００％満足の施術", CTA: "DMへ", Hashtags: tags}},
		{Text: "案3", Parts: models.CaptionParts{Hook: "フック", Body: "本文", CTA: "必ず予約して", Hashtags: tags}},
	}
	gen := &fakeGenerator{payload: payload(t, "captions", generated)}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})
	req := captionRequest()

	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Diagnostics.FilteredCount)
	assert.Equal(t, 3, result.Diagnostics.BackfilledCount)
	assert.Equal(t, fallback.New().Captions(req), result.Captions)
	assertCleanCaptions(t, result.Captions)
}

func TestGenerationOrchestrator_DenylistedTopicNeverReachesCaptions(t *testing.T) {
	req := captionRequest()
	req.Topic = "絶対痩せるダイエット"

	tests := []struct {
		name      string
		generator *fakeGenerator
		source    models.Source
	}{
		{name: "no generator", source: models.SourceFallback},
		{
			name:      "generator failure",
			generator: &fakeGenerator{err: &generator.UpstreamError{Kind: generator.KindServer, StatusCode: 503, Attempts: 3, Err: errors.New("unavailable")}},
			source:    models.SourceFallbackAfterError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, orchestratorFixture{generator: tt.generator})

			result, err := o.Generate(context.Background(), "u1", req)
			require.NoError(t, err)

			assert.Equal(t, tt.source, result.Source)
			require.Len(t, result.Captions, 3)
			require.Len(t, result.Items, 3)
			assert.Equal(t, fallback.New().GenericCaptions(req), result.Captions)
			assert.Equal(t, 3, result.Diagnostics.BackfilledCount)
			assertCleanCaptions(t, result.Captions)
			for _, item := range result.Items {
				assert.NotContains(t, item, req.Topic)
			}
		})
	}
}

func TestGenerationOrchestrator_CaptionsWithoutGenerator(t *testing.T) {
	o := newTestOrchestrator(t, orchestratorFixture{})
	req := captionRequest()

	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, models.SourceFallback, result.Source)
	assert.Equal(t, fallback.New().Captions(req), result.Captions)
	assert.Equal(t, 3, result.Diagnostics.BackfilledCount)
	for _, caption := range result.Captions {
		assert.Contains(t, caption.Text, "新メニュー")
	}
}

func TestGenerationOrchestrator_Replies(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "replies", []models.Reply{
		{Style: "", Text: " 土曜日の14時以降でしたらご案内できます。 "},
		{Style: "丁寧", Text: "絶対にご満足いただけます。"},
		{Style: "短め", Text: "  "},
	})}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})
	req := replyRequest()

	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, models.SourceGenerated, result.Source)
	require.Len(t, result.Replies, 3)
	assert.Equal(t, models.Reply{Style: "AI生成パターン1", Text: "土曜日の14時以降でしたらご案内できます。"}, result.Replies[0])
	assert.Equal(t, fallback.New().Replies(req)[:2], result.Replies[1:])
	assert.Equal(t, 2, result.Diagnostics.FilteredCount)
	assert.Equal(t, 2, result.Diagnostics.BackfilledCount)
	for i, reply := range result.Replies {
		assert.Equal(t, reply.Text, result.Items[i])
	}
	assert.Contains(t, gen.prompts[0], "問い合わせ内容: 土曜日の午後は空いていますか？")
}

func TestGenerationOrchestrator_RepliesSkipUncleanFallback(t *testing.T) {
	o := newTestOrchestrator(t, orchestratorFixture{})
	req := replyRequest()
	req.Inquiry = "必ず予約できますか？"

	result, err := o.Generate(context.Background(), "u1", req)
	require.NoError(t, err)

	catalog := fallback.New()
	assert.Equal(t, models.SourceFallback, result.Source)
	assert.Equal(t, []models.Reply{
		catalog.Replies(req)[1],
		catalog.Replies(req)[2],
		catalog.GenericReplies(req)[0],
	}, result.Replies)
	assert.Equal(t, 3, result.Diagnostics.BackfilledCount)

	p := policy.NewDefault()
	for _, reply := range result.Replies {
		assert.True(t, p.IsClean(reply.Text), reply.Text)
	}
}

func TestGenerationOrchestrator_ValidationRunsBeforeGates(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hooks", []string{"h1"})}
	limiter := NewMemoryRateLimiter(5*time.Second, 10*time.Second, nil)
	quota := NewMemoryQuotaStore(nil, time.UTC)
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen, limiter: limiter, quota: quota})

	req := hookRequest()
	req.Tone = "怒り"
	req.Topic = ""

	_, err := o.Generate(context.Background(), "u1", req)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Details, "tone")
	assert.Contains(t, validationErr.Details, "topic")
	assert.Zero(t, gen.calls)

	// The rejected request consumed neither cooldown nor quota.
	_, err = o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)
	record, _ := quota.Get(context.Background(), "u1")
	assert.Equal(t, 1, record.Used)
}

func TestGenerationOrchestrator_RateLimited(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hooks", []string{"h1"})}
	quota := NewMemoryQuotaStore(nil, time.UTC)
	limiter := NewMemoryRateLimiter(5*time.Second, 10*time.Second, nil)
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen, limiter: limiter, quota: quota})

	_, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), "u1", hookRequest())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, gen.calls)

	// A different endpoint has its own cooldown.
	_, err = o.Generate(context.Background(), "u1", hashtagRequest())
	assert.NoError(t, err)

	record, _ := quota.Get(context.Background(), "u1")
	assert.Equal(t, 2, record.Used)
}

func TestGenerationOrchestrator_QuotaExceeded(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hooks", []string{"h1"})}
	quota := NewMemoryQuotaStore(nil, time.UTC)
	for i := 0; i < 20; i++ {
		_, err := quota.Increment(context.Background(), "u1")
		require.NoError(t, err)
	}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen, quota: quota})

	_, err := o.Generate(context.Background(), "u1", hookRequest())
	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, models.PlanFree, quotaErr.Record.Plan)
	assert.Equal(t, 20, quotaErr.Record.Limit)
	assert.Equal(t, 20, quotaErr.Record.Used)
	assert.Zero(t, gen.calls)
}

func TestGenerationOrchestrator_LastUnitOfQuota(t *testing.T) {
	quota := NewMemoryQuotaStore(nil, time.UTC)
	for i := 0; i < 19; i++ {
		_, err := quota.Increment(context.Background(), "u1")
		require.NoError(t, err)
	}
	o := newTestOrchestrator(t, orchestratorFixture{quota: quota})

	result, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)
	assert.False(t, result.Diagnostics.QuotaCommitFailed)

	_, err = o.Generate(context.Background(), "u1", hashtagRequest())
	var quotaErr *QuotaExceededError
	assert.True(t, errors.As(err, &quotaErr))
}

func TestGenerationOrchestrator_QuotaCommitRefused(t *testing.T) {
	quota := &stubQuotaStore{
		record:    models.NewQuotaRecord("u1", models.Plans[models.PlanFree], 19, "2026-03", time.Time{}),
		committed: false,
	}
	o := newTestOrchestrator(t, orchestratorFixture{quota: quota})

	result, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)
	assert.True(t, result.Diagnostics.QuotaCommitFailed)
	assert.Len(t, result.Items, 5)
	assert.Equal(t, 1, quota.increments)
}

func TestGenerationOrchestrator_StorageErrorsFailClosed(t *testing.T) {
	t.Run("quota read", func(t *testing.T) {
		quota := &stubQuotaStore{getErr: storageErr("get quota", errors.New("connection refused"))}
		o := newTestOrchestrator(t, orchestratorFixture{quota: quota})

		_, err := o.Generate(context.Background(), "u1", hookRequest())
		var storageError *StorageError
		assert.True(t, errors.As(err, &storageError))
		assert.Zero(t, quota.increments)
	})

	t.Run("quota increment", func(t *testing.T) {
		quota := &stubQuotaStore{
			record:       models.NewQuotaRecord("u1", models.Plans[models.PlanFree], 0, "2026-03", time.Time{}),
			incrementErr: storageErr("increment quota", errors.New("connection refused")),
		}
		o := newTestOrchestrator(t, orchestratorFixture{quota: quota})

		result, err := o.Generate(context.Background(), "u1", hookRequest())
		assert.Nil(t, result)
		var storageError *StorageError
		assert.True(t, errors.As(err, &storageError))
	})

	t.Run("rate limit store", func(t *testing.T) {
		mr, client := newRedisClient(t)
		limiter := NewRedisRateLimiter(client, 0, 0, nil, testLogger())
		mr.Close()
		o := newTestOrchestrator(t, orchestratorFixture{limiter: limiter})

		_, err := o.Generate(context.Background(), "u1", hookRequest())
		var storageError *StorageError
		assert.True(t, errors.As(err, &storageError))
	})
}

func TestGenerationOrchestrator_PublishesUsage(t *testing.T) {
	publisher := new(MockUsagePublisher)
	publisher.On("PublishUsage", mock.Anything, mock.MatchedBy(func(event models.UsageEvent) bool {
		return event.UserID == "u1" &&
			event.ContentType == models.ContentTypeHashtag &&
			event.Industry == models.IndustrySalon &&
			event.Source == models.SourceFallback &&
			event.BackfilledCount == 6 &&
			event.QuotaCommitted &&
			event.EventID != ""
	})).Return(nil).Once()

	o := newTestOrchestrator(t, orchestratorFixture{publisher: publisher})

	_, err := o.Generate(context.Background(), "u1", hashtagRequest())
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestGenerationOrchestrator_PublishFailureIsNotSurfaced(t *testing.T) {
	publisher := new(MockUsagePublisher)
	publisher.On("PublishUsage", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	o := newTestOrchestrator(t, orchestratorFixture{publisher: publisher})

	result, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)
	assert.Len(t, result.Items, 5)
	publisher.AssertNumberOfCalls(t, "PublishUsage", 1)
}

func TestGenerationOrchestrator_PromptCarriesRequest(t *testing.T) {
	gen := &fakeGenerator{payload: payload(t, "hooks", []string{"h1", "h2", "h3", "h4", "h5"})}
	o := newTestOrchestrator(t, orchestratorFixture{generator: gen})

	_, err := o.Generate(context.Background(), "u1", hookRequest())
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "新メニュー")
	assert.Contains(t, gen.prompts[0], string(models.ToneFriendly))
}

func TestGenerationOrchestrator_UsageAndSetPlan(t *testing.T) {
	quota := NewMemoryQuotaStore(nil, time.UTC)
	o := newTestOrchestrator(t, orchestratorFixture{quota: quota})

	require.NoError(t, o.SetPlan(context.Background(), "u1", models.PlanPremium))

	record, err := o.Usage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, record.Plan)
	assert.Equal(t, 500, record.Remaining)
}

func TestBackfill(t *testing.T) {
	items, added := backfill([]string{"a", "b"}, []string{"b", "c", "d", "e"}, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, items)
	assert.Equal(t, 2, added)

	items, added = backfill([]string{"a", "b", "c"}, []string{"x"}, 2)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Zero(t, added)
}
