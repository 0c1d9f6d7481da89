package pipeline

import (
	"context"
	"fmt"

	"github.com/avlasov/newsgate/app/database"
)

// Deduplicator compares a candidate's content against the bot's most
// recently accepted articles using embedding similarity.
type Deduplicator struct {
	scorer SimilarityScorer
	store  database.ArticleRepository
}

func NewDeduplicator(scorer SimilarityScorer, store database.ArticleRepository) *Deduplicator {
	return &Deduplicator{scorer: scorer, store: store}
}

// Run reports whether the content is semantically similar to a recent
// article. Comparison walks the recent window newest-first and stops
// at the first score at or above the threshold; later, possibly more
// similar articles are never compared once a hit is found. A scorer
// failure propagates as an error - silently skipping a comparison
// could let a true duplicate through.
func (d *Deduplicator) Run(ctx context.Context, botID, content string, limit int, threshold float64) (bool, float64, error) {
	recent, err := d.store.RecentArticles(botID, limit)
	if err != nil {
		return false, 0, fmt.Errorf("load recent articles: %w", err)
	}

	for _, article := range recent {
		score, err := d.scorer.Similarity(ctx, article.Content, content)
		if err != nil {
			return false, 0, fmt.Errorf("similarity against article %s: %w", article.ID, err)
		}

		if score >= threshold {
			return true, score, nil
		}
	}

	return false, 0, nil
}
