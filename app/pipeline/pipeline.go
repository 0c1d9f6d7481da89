package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/database"
)

const DefaultWorkerCount = 20

// Deps wires all collaborators into the pipeline. Every dependency is
// injected; the pipeline keeps no global state.
type Deps struct {
	Source      SourceReader
	Resolver    LinkResolver
	Extractor   ContentExtractor
	Scorer      SimilarityScorer
	Analyzer    Analyzer
	ImageGen    ImageGenerator
	Uploader    Uploader
	Notifier    Notifier
	Store       database.ArticleRepository
	WorkerCount int
}

// Pipeline drives candidates through the gate sequence with bounded
// concurrency, isolating per-candidate failures and aggregating run
// metrics.
type Pipeline struct {
	source      SourceReader
	extractor   ContentExtractor
	analyzer    Analyzer
	imageGen    ImageGenerator
	uploader    Uploader
	notifier    Notifier
	store       database.ArticleRepository
	normalizer  *Normalizer
	recency     *RecencyGate
	relevance   *RelevanceFilter
	dedup       *Deduplicator
	workerCount int
}

func New(deps Deps) *Pipeline {
	workerCount := deps.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	return &Pipeline{
		source:      deps.Source,
		extractor:   deps.Extractor,
		analyzer:    deps.Analyzer,
		imageGen:    deps.ImageGen,
		uploader:    deps.Uploader,
		notifier:    deps.Notifier,
		store:       deps.Store,
		normalizer:  NewNormalizer(deps.Resolver),
		recency:     NewRecencyGate(),
		relevance:   NewRelevanceFilter(),
		dedup:       NewDeduplicator(deps.Scorer, deps.Store),
		workerCount: workerCount,
	}
}

// Run executes one full pass over the bot's current candidate list.
// A source failure or an empty list ends the run immediately with
// success=false; anything after that point is per-candidate and never
// aborts siblings.
func (p *Pipeline) Run(ctx context.Context, profile *bot.Profile) *Report {
	metrics := NewMetrics()
	report := &Report{
		RunID: uuid.NewString(),
		BotID: profile.ID,
	}

	candidates, err := p.source.Fetch(ctx, profile)
	if err != nil {
		metrics.IncError(ErrorUnexpected)
		metrics.Finish()
		report.Message = fmt.Sprintf("source fetch failed: %v", err)
		report.Metrics = metrics.Snapshot()
		return report
	}

	if len(candidates) == 0 {
		metrics.Finish()
		report.Message = "source returned no candidates"
		report.Metrics = metrics.Snapshot()
		return report
	}

	metrics.SetTotalFound(len(candidates))

	workerCount := p.workerCount
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}

	jobs := make(chan Candidate)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				p.processCandidate(ctx, profile, candidate, metrics)
			}
		}()
	}

	for _, candidate := range candidates {
		jobs <- candidate
	}
	close(jobs)
	wg.Wait()

	metrics.Finish()
	report.Success = true
	snapshot := metrics.Snapshot()
	report.Metrics = snapshot
	report.Message = fmt.Sprintf("processed %d of %d candidates, saved %d",
		snapshot.Processed, snapshot.TotalFound, snapshot.Saved)

	return report
}

// processCandidate runs one candidate through the full gate sequence.
// Every terminal outcome is local to the candidate: a rejection goes to
// the outcome store, an error goes to the metrics error bucket, and a
// panic is converted to an unexpected error rather than taking down
// sibling workers.
func (p *Pipeline) processCandidate(ctx context.Context, profile *bot.Profile, candidate Candidate, metrics *Metrics) {
	defer metrics.IncProcessed()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Candidate processing panicked", "bot", profile.ID, "link", candidate.RawLink, "panic", r)
			metrics.IncError(ErrorUnexpected)
		}
	}()

	// Link normalization
	canonicalURL, rejection, err := p.normalizer.Run(ctx, candidate.RawLink, profile)
	if err != nil {
		p.recordError(profile, candidate.RawLink, ErrorURLProcessing, err, metrics)
		return
	}
	if rejection != nil {
		p.reject(profile, candidate.RawLink, "", "", nil, rejection, metrics)
		return
	}

	// Recency gate
	publishedAt, rejection, err := p.recency.Run(candidate.Published, profile.Settings.RecencyWindowDuration(), time.Now().UTC())
	if err != nil {
		p.recordError(profile, canonicalURL, ErrorDateParse, err, metrics)
		return
	}
	if rejection != nil {
		p.reject(profile, canonicalURL, "", "", &publishedAt, rejection, metrics)
		return
	}

	// Duplicate gate: after normalization so redirect-wrapped duplicates
	// are caught, before extraction to avoid wasted work.
	exists, err := p.store.Exists(profile.ID, canonicalURL)
	if err != nil {
		p.recordError(profile, canonicalURL, ErrorDatabaseSave, err, metrics)
		return
	}
	if exists {
		rejection := &Rejection{Reason: ReasonDuplicate, Detail: "URL already processed for this bot"}
		p.reject(profile, canonicalURL, "", "", &publishedAt, rejection, metrics)
		return
	}

	// Content extraction
	title, body, err := p.extractor.Extract(ctx, canonicalURL)
	if err != nil {
		p.recordError(profile, canonicalURL, ErrorContentExtraction, err, metrics)
		return
	}

	// Relevance filter
	matchedKeywords, matchedBlacklist := p.relevance.Run(title+" "+body, profile.Keywords, profile.Blacklist)
	if len(matchedBlacklist) > 0 {
		rejection := &Rejection{
			Reason: ReasonBlacklist,
			Detail: fmt.Sprintf("blacklist terms matched: %v", matchedBlacklist),
		}
		p.reject(profile, canonicalURL, title, body, &publishedAt, rejection, metrics)
		return
	}
	if len(matchedKeywords) == 0 {
		rejection := &Rejection{Reason: ReasonNoKeywords, Detail: "no keywords matched"}
		p.reject(profile, canonicalURL, title, body, &publishedAt, rejection, metrics)
		return
	}

	// Semantic deduplication
	isSimilar, score, err := p.dedup.Run(ctx, profile.ID, body,
		profile.Settings.RecentWindowSize, profile.Settings.SimilarityThreshold)
	if err != nil {
		p.recordError(profile, canonicalURL, ErrorAnalysisGeneration, err, metrics)
		return
	}
	if isSimilar {
		rejection := &Rejection{
			Reason: ReasonSimilarContent,
			Detail: fmt.Sprintf("similar to recent article, score %.3f", score),
		}
		p.reject(profile, canonicalURL, title, body, &publishedAt, rejection, metrics)
		return
	}

	// Generation and persistence. Failures past this point are recorded
	// only in metrics, never as unwanted records: the candidate passed
	// every filter, the system just could not finish publishing it.
	newTitle, newBody, err := p.analyzer.Rewrite(ctx, title, body, profile)
	if err != nil {
		p.recordError(profile, canonicalURL, ErrorAnalysisGeneration, err, metrics)
		return
	}

	imageURL := ""
	if p.imageGen != nil {
		imageRef, err := p.imageGen.Generate(ctx, newBody, profile)
		if err != nil {
			p.recordError(profile, canonicalURL, ErrorImageGeneration, err, metrics)
			return
		}
		if p.uploader != nil {
			imageURL, err = p.uploader.Upload(ctx, imageRef)
			if err != nil {
				p.recordError(profile, canonicalURL, ErrorImageGeneration, err, metrics)
				return
			}
		}
	}

	_, err = p.store.SaveArticle(database.Article{
		BotID:        profile.ID,
		Title:        newTitle,
		Content:      newBody,
		URL:          canonicalURL,
		ImageURL:     imageURL,
		UsedKeywords: matchedKeywords,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateURL) {
			slog.Debug("Lost save race for URL", "bot", profile.ID, "url", canonicalURL)
		}
		p.recordError(profile, canonicalURL, ErrorDatabaseSave, err, metrics)
		return
	}

	metrics.IncSaved()
	slog.Info("Article accepted", "bot", profile.ID, "url", canonicalURL,
		"title", newTitle, "keywords", matchedKeywords)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, newTitle, canonicalURL, newBody, imageURL); err != nil {
			slog.Warn("Notification failed", "bot", profile.ID, "url", canonicalURL, "error", err)
		}
	}
}

// reject records a policy rejection: an unwanted article row plus the
// filter-reason counter. A uniqueness conflict on the unwanted row
// means the URL was already recorded by an earlier run or a sibling
// worker; the counter is still incremented.
func (p *Pipeline) reject(profile *bot.Profile, url, title, body string, publishedAt *time.Time, rejection *Rejection, metrics *Metrics) {
	metrics.IncFiltered(rejection.Reason)

	_, err := p.store.SaveUnwanted(database.UnwantedArticle{
		BotID:       profile.ID,
		Title:       title,
		Content:     body,
		Reason:      string(rejection.Reason),
		URL:         url,
		PublishedAt: publishedAt,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateURL) {
			slog.Debug("Unwanted article already recorded", "bot", profile.ID, "url", url)
			return
		}
		slog.Error("Failed to save unwanted article", "bot", profile.ID, "url", url, "error", err)
		metrics.IncError(ErrorDatabaseSave)
		return
	}

	slog.Debug("Candidate rejected", "bot", profile.ID, "url", url,
		"reason", rejection.Reason, "detail", rejection.Detail)
}

func (p *Pipeline) recordError(profile *bot.Profile, url string, kind ErrorKind, err error, metrics *Metrics) {
	metrics.IncError(kind)
	slog.Warn("Candidate processing failed", "bot", profile.ID, "url", url,
		"kind", kind, "error", err)
}
