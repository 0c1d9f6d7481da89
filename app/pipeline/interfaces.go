package pipeline

import (
	"context"

	"github.com/avlasov/newsgate/app/bot"
)

// Collaborator contracts consumed by the pipeline. All implementations
// live outside this package and are injected through Deps; the pipeline
// holds no module-level state.

// SourceReader pulls the current candidate list from a bot's source.
// A fetch failure short-circuits the whole run.
type SourceReader interface {
	Fetch(ctx context.Context, profile *bot.Profile) ([]Candidate, error)
}

// LinkResolver follows a redirect-wrapped link to its final location.
type LinkResolver interface {
	Resolve(ctx context.Context, rawLink string) (string, error)
}

// ContentExtractor turns a canonical URL into a title and body text.
// An empty body is an extraction failure, never a success.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (title, body string, err error)
}

// SimilarityScorer computes a semantic similarity score in [-1, 1]
// between two text blobs.
type SimilarityScorer interface {
	Similarity(ctx context.Context, textA, textB string) (float64, error)
}

// Analyzer rewrites an extracted article into the bot's voice.
type Analyzer interface {
	Rewrite(ctx context.Context, title, body string, profile *bot.Profile) (newTitle, newBody string, err error)
}

// ImageGenerator produces a cover image reference for an article body.
type ImageGenerator interface {
	Generate(ctx context.Context, body string, profile *bot.Profile) (imageRef string, err error)
}

// Uploader copies a generated image to object storage and returns its
// public URL.
type Uploader interface {
	Upload(ctx context.Context, imageRef string) (string, error)
}

// Notifier announces a published article. Best-effort: a notification
// failure never rolls back persistence.
type Notifier interface {
	Notify(ctx context.Context, title, url, body, imageURL string) error
}
