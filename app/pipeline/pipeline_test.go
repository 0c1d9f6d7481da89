package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/database"
)

// memoryStore is an in-memory ArticleRepository with the same
// uniqueness semantics as the postgres implementation: one row per
// (bot, lower-cased URL) across saves.
type memoryStore struct {
	mu             sync.Mutex
	articles       []database.Article
	unwanted       []database.UnwantedArticle
	saveArticleErr error
	existsErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) SaveArticle(article database.Article) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveArticleErr != nil {
		return "", s.saveArticleErr
	}
	for _, existing := range s.articles {
		if existing.BotID == article.BotID && strings.EqualFold(existing.URL, article.URL) {
			return "", database.ErrDuplicateURL
		}
	}

	article.ID = fmt.Sprintf("article-%d", len(s.articles)+1)
	article.CreatedAt = time.Now().UTC()
	// Newest first, matching the created_at DESC ordering of the real store.
	s.articles = append([]database.Article{article}, s.articles...)
	return article.ID, nil
}

func (s *memoryStore) SaveUnwanted(article database.UnwantedArticle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.unwanted {
		if existing.BotID == article.BotID && strings.EqualFold(existing.URL, article.URL) {
			return "", database.ErrDuplicateURL
		}
	}

	article.ID = fmt.Sprintf("unwanted-%d", len(s.unwanted)+1)
	s.unwanted = append(s.unwanted, article)
	return article.ID, nil
}

func (s *memoryStore) Exists(botID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, article := range s.articles {
		if article.BotID == botID && strings.EqualFold(article.URL, url) {
			return true, nil
		}
	}
	for _, article := range s.unwanted {
		if article.BotID == botID && strings.EqualFold(article.URL, url) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) RecentArticles(botID string, limit int) ([]database.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []database.Article
	for _, article := range s.articles {
		if article.BotID != botID {
			continue
		}
		result = append(result, article)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *memoryStore) GetArticles(botID string, limit int) ([]database.Article, error) {
	return s.RecentArticles(botID, limit)
}

func (s *memoryStore) GetUnwanted(botID string, limit int) ([]database.UnwantedArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []database.UnwantedArticle
	for _, article := range s.unwanted {
		if article.BotID != botID {
			continue
		}
		result = append(result, article)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *memoryStore) GetStats(botID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted, unwanted := 0, 0
	for _, article := range s.articles {
		if article.BotID == botID {
			accepted++
		}
	}
	for _, article := range s.unwanted {
		if article.BotID == botID {
			unwanted++
		}
	}
	return accepted, unwanted, nil
}

func (s *memoryStore) unwantedReasons() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reasons := make(map[string]int)
	for _, article := range s.unwanted {
		reasons[article.Reason]++
	}
	return reasons
}

type stubSource struct {
	candidates []Candidate
	err        error
}

func (s *stubSource) Fetch(ctx context.Context, profile *bot.Profile) ([]Candidate, error) {
	return s.candidates, s.err
}

type stubExtractor struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]error
	titles  map[string]string
	bodies  map[string]string
}

func (e *stubExtractor) Extract(ctx context.Context, url string) (string, string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if err, ok := e.failFor[url]; ok {
		return "", "", err
	}
	title := "Extracted title"
	if t, ok := e.titles[url]; ok {
		title = t
	}
	body := "Extracted body about ai advances"
	if b, ok := e.bodies[url]; ok {
		body = b
	}
	return title, body, nil
}

func (e *stubExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type stubScorer struct {
	score float64
	err   error
}

func (s *stubScorer) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	return s.score, s.err
}

type stubAnalyzer struct {
	err error
}

func (a *stubAnalyzer) Rewrite(ctx context.Context, title, body string, profile *bot.Profile) (string, string, error) {
	if a.err != nil {
		return "", "", a.err
	}
	return "Rewritten: " + title, "Rewritten: " + body, nil
}

type stubImageGen struct {
	err error
}

func (g *stubImageGen) Generate(ctx context.Context, body string, profile *bot.Profile) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "https://images.example.com/generated.png", nil
}

type stubUploader struct {
	err error
}

func (u *stubUploader) Upload(ctx context.Context, imageRef string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return "https://storage.example.com/uploaded.png", nil
}

type stubNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *stubNotifier) Notify(ctx context.Context, title, url, body, imageURL string) error {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return n.err
}

func (n *stubNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func pipelineProfile() *bot.Profile {
	return &bot.Profile{
		ID:        "tech",
		Name:      "Tech News",
		SourceURL: "https://example.com/feed.xml",
		Keywords:  []string{"ai"},
		Blacklist: []string{"casino"},
		Settings: bot.ProfileSettings{
			Enabled:             true,
			SimilarityThreshold: 0.9,
			RecencyWindow:       24,
			RecentWindowSize:    10,
			Timeout:             30,
		},
	}
}

func recentDate() string {
	return time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
}

func testDeps(source *stubSource, store *memoryStore) Deps {
	return Deps{
		Source:      source,
		Resolver:    &fakeResolver{},
		Extractor:   &stubExtractor{},
		Scorer:      &stubScorer{score: 0.1},
		Analyzer:    &stubAnalyzer{},
		ImageGen:    &stubImageGen{},
		Uploader:    &stubUploader{},
		Notifier:    &stubNotifier{},
		Store:       store,
		WorkerCount: 4,
	}
}

func TestPipeline_Run_EmptySource(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: nil}
	pipe := New(testDeps(source, store))

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Success {
		t.Error("Expected success=false for empty candidate list")
	}
	if report.Message != "source returned no candidates" {
		t.Errorf("Unexpected message: %s", report.Message)
	}
	if len(report.Metrics.Errors) != 0 {
		t.Errorf("An empty source is not an error, got error counters: %v", report.Metrics.Errors)
	}
	if report.RunID == "" {
		t.Error("Expected a run ID even for an empty run")
	}
}

func TestPipeline_Run_SourceFetchError(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{err: errors.New("connection refused")}
	pipe := New(testDeps(source, store))

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Success {
		t.Error("Expected success=false when source fetch fails")
	}
	if report.Metrics.Errors[ErrorUnexpected] != 1 {
		t.Errorf("Expected 1 unexpected error, got %v", report.Metrics.Errors)
	}
}

func TestPipeline_Run_AcceptsMatchingCandidate(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-breakthrough", Published: recentDate(), BotID: "tech"},
	}}
	deps := testDeps(source, store)
	notifier := &stubNotifier{}
	deps.Notifier = notifier
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if !report.Success {
		t.Fatalf("Expected success, got message: %s", report.Message)
	}
	if report.Metrics.Saved != 1 {
		t.Fatalf("Expected 1 saved article, got %d", report.Metrics.Saved)
	}
	if report.Metrics.Processed != 1 || report.Metrics.TotalFound != 1 {
		t.Errorf("Expected processed=1 total_found=1, got %d/%d",
			report.Metrics.Processed, report.Metrics.TotalFound)
	}

	if len(store.articles) != 1 {
		t.Fatalf("Expected 1 stored article, got %d", len(store.articles))
	}
	saved := store.articles[0]
	if !strings.HasPrefix(saved.Title, "Rewritten:") {
		t.Errorf("Expected rewritten title, got: %s", saved.Title)
	}
	if saved.ImageURL != "https://storage.example.com/uploaded.png" {
		t.Errorf("Expected uploaded image URL, got: %s", saved.ImageURL)
	}
	if len(saved.UsedKeywords) != 1 || saved.UsedKeywords[0] != "ai" {
		t.Errorf("Expected used keywords [ai], got %v", saved.UsedKeywords)
	}
	if notifier.callCount() != 1 {
		t.Errorf("Expected 1 notification, got %d", notifier.callCount())
	}
}

func TestPipeline_Run_MixedOutcomes(t *testing.T) {
	store := newMemoryStore()
	stale := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
		{RawLink: "https://example.com/articles/casino-ai", Published: recentDate()},
		{RawLink: "https://example.com/articles/bakery", Published: recentDate()},
		{RawLink: "https://example.com/articles/old-ai", Published: stale},
		{RawLink: "not a url at all ://", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.Extractor = &stubExtractor{
		bodies: map[string]string{
			"https://example.com/articles/casino-ai": "ai model deployed at a casino",
			"https://example.com/articles/bakery":    "a bakery wins a local award",
		},
	}
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if !report.Success {
		t.Fatalf("Expected success, got message: %s", report.Message)
	}
	if report.Metrics.TotalFound != 5 || report.Metrics.Processed != 5 {
		t.Errorf("Expected total_found=5 processed=5, got %d/%d",
			report.Metrics.TotalFound, report.Metrics.Processed)
	}
	if report.Metrics.Saved != 1 {
		t.Errorf("Expected 1 saved, got %d", report.Metrics.Saved)
	}

	expected := map[Reason]int64{
		ReasonBlacklist:     1,
		ReasonNoKeywords:    1,
		ReasonDateNotRecent: 1,
		ReasonInvalidURL:    1,
	}
	for reason, count := range expected {
		if report.Metrics.Filtered[reason] != count {
			t.Errorf("Expected filtered[%s]=%d, got %d", reason, count, report.Metrics.Filtered[reason])
		}
	}

	reasons := store.unwantedReasons()
	if reasons[string(ReasonBlacklist)] != 1 {
		t.Errorf("Expected 1 blacklist unwanted record, got %v", reasons)
	}
	if reasons[string(ReasonNoKeywords)] != 1 {
		t.Errorf("Expected 1 no_keywords unwanted record, got %v", reasons)
	}
}

func TestPipeline_Run_ExtractionFailureIsolated(t *testing.T) {
	store := newMemoryStore()
	var candidates []Candidate
	for i := 1; i <= 10; i++ {
		candidates = append(candidates, Candidate{
			RawLink:   fmt.Sprintf("https://example.com/articles/ai-story-%d", i),
			Published: recentDate(),
		})
	}
	source := &stubSource{candidates: candidates}
	deps := testDeps(source, store)
	deps.Extractor = &stubExtractor{
		failFor: map[string]error{
			"https://example.com/articles/ai-story-4": errors.New("page returned 503"),
		},
	}
	// Similarity threshold high enough that distinct stories never collide.
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if !report.Success {
		t.Fatalf("Expected success, got message: %s", report.Message)
	}
	if report.Metrics.Processed != 10 {
		t.Errorf("Expected all 10 candidates processed, got %d", report.Metrics.Processed)
	}
	if report.Metrics.Saved != 9 {
		t.Errorf("Expected 9 saved, got %d", report.Metrics.Saved)
	}
	if report.Metrics.Errors[ErrorContentExtraction] != 1 {
		t.Errorf("Expected 1 content_extraction error, got %v", report.Metrics.Errors)
	}
}

func TestPipeline_Run_DuplicateURLSkipsExtraction(t *testing.T) {
	store := newMemoryStore()
	if _, err := store.SaveArticle(database.Article{
		BotID:   "tech",
		Title:   "Earlier run",
		Content: "already accepted",
		URL:     "https://example.com/articles/AI-News",
	}); err != nil {
		t.Fatalf("Seeding store failed: %v", err)
	}

	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	extractor := &stubExtractor{}
	deps.Extractor = extractor
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Filtered[ReasonDuplicate] != 1 {
		t.Errorf("Expected 1 duplicate rejection, got %v", report.Metrics.Filtered)
	}
	if report.Metrics.Saved != 0 {
		t.Errorf("Expected 0 saved, got %d", report.Metrics.Saved)
	}
	if extractor.callCount() != 0 {
		t.Errorf("Duplicate gate should run before extraction, extractor called %d times", extractor.callCount())
	}
}

func TestPipeline_Run_SimilarContentRejected(t *testing.T) {
	store := newMemoryStore()
	if _, err := store.SaveArticle(database.Article{
		BotID:   "tech",
		Title:   "Earlier story",
		Content: "an earlier take on the same ai story",
		URL:     "https://example.com/articles/earlier",
	}); err != nil {
		t.Fatalf("Seeding store failed: %v", err)
	}

	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-retold", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.Scorer = &stubScorer{score: 0.95}
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Filtered[ReasonSimilarContent] != 1 {
		t.Errorf("Expected 1 similar_content rejection, got %v", report.Metrics.Filtered)
	}
	if report.Metrics.Saved != 0 {
		t.Errorf("Expected 0 saved, got %d", report.Metrics.Saved)
	}
	reasons := store.unwantedReasons()
	if reasons[string(ReasonSimilarContent)] != 1 {
		t.Errorf("Expected similar_content unwanted record, got %v", reasons)
	}
}

func TestPipeline_Run_SaveRaceCountsAsDatabaseError(t *testing.T) {
	store := newMemoryStore()
	store.saveArticleErr = database.ErrDuplicateURL

	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	pipe := New(testDeps(source, store))

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Saved != 0 {
		t.Errorf("Expected 0 saved, got %d", report.Metrics.Saved)
	}
	if report.Metrics.Errors[ErrorDatabaseSave] != 1 {
		t.Errorf("Expected 1 database_save error, got %v", report.Metrics.Errors)
	}
	if len(store.unwanted) != 0 {
		t.Errorf("A save race must not produce an unwanted record, got %d", len(store.unwanted))
	}
}

func TestPipeline_Run_GenerationFailureDropsCandidate(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.Analyzer = &stubAnalyzer{err: errors.New("model overloaded")}
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Errors[ErrorAnalysisGeneration] != 1 {
		t.Errorf("Expected 1 analysis_generation error, got %v", report.Metrics.Errors)
	}
	if len(store.unwanted) != 0 {
		t.Errorf("Generation failures are metrics-only, got %d unwanted records", len(store.unwanted))
	}
	if report.Metrics.Saved != 0 {
		t.Errorf("Expected 0 saved, got %d", report.Metrics.Saved)
	}
}

func TestPipeline_Run_UploadFailureCountsAsImageError(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.Uploader = &stubUploader{err: errors.New("bucket unavailable")}
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Errors[ErrorImageGeneration] != 1 {
		t.Errorf("Expected 1 image_generation error, got %v", report.Metrics.Errors)
	}
	if report.Metrics.Saved != 0 {
		t.Errorf("Expected 0 saved, got %d", report.Metrics.Saved)
	}
}

func TestPipeline_Run_NotifierFailureDoesNotAffectSave(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.Notifier = &stubNotifier{err: errors.New("chat not found")}
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Saved != 1 {
		t.Errorf("Notification failure must not affect persistence, got saved=%d", report.Metrics.Saved)
	}
	if len(report.Metrics.Errors) != 0 {
		t.Errorf("Notification failure is best-effort, got error counters: %v", report.Metrics.Errors)
	}
}

func TestPipeline_Run_NoImageGeneratorConfigured(t *testing.T) {
	store := newMemoryStore()
	source := &stubSource{candidates: []Candidate{
		{RawLink: "https://example.com/articles/ai-news", Published: recentDate()},
	}}
	deps := testDeps(source, store)
	deps.ImageGen = nil
	deps.Uploader = nil
	pipe := New(deps)

	report := pipe.Run(context.Background(), pipelineProfile())

	if report.Metrics.Saved != 1 {
		t.Fatalf("Expected 1 saved, got %d", report.Metrics.Saved)
	}
	if store.articles[0].ImageURL != "" {
		t.Errorf("Expected empty image URL without a generator, got: %s", store.articles[0].ImageURL)
	}
}
