package pipeline

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// RecencyGate accepts only candidates whose published timestamp lies
// inside the bot's freshness window.
type RecencyGate struct{}

func NewRecencyGate() *RecencyGate {
	return &RecencyGate{}
}

// Run parses the published date string and checks it against the
// window around now. The window is two-sided: a slightly-future date
// passes too, tolerating publisher clock skew. An unparsable date is
// an error, not a rejection - it usually means an upstream format
// change worth surfacing.
func (g *RecencyGate) Run(published string, window time.Duration, now time.Time) (time.Time, *Rejection, error) {
	publishedAt, err := dateparse.ParseAny(published)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("parse published date %q: %w", published, err)
	}

	age := now.Sub(publishedAt)
	if age < 0 {
		age = -age
	}

	if age > window {
		return publishedAt, &Rejection{
			Reason: ReasonDateNotRecent,
			Detail: fmt.Sprintf("published %s, outside %s window", publishedAt.Format(time.RFC3339), window),
		}, nil
	}

	return publishedAt, nil, nil
}
