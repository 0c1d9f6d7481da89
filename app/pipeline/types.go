package pipeline

import (
	"time"
)

// Candidate is a single link+date pair pulled from a bot's source,
// not yet validated. It exists only for the duration of one run.
type Candidate struct {
	RawLink   string
	Published string
	BotID     string
}

// ResolvedLink is a candidate whose raw link has been resolved to a
// canonical, redirect-free article URL.
type ResolvedLink struct {
	CanonicalURL string
	Candidate    Candidate
}

// ExtractedContent is the title/body pair produced by the content
// extractor for a canonical URL.
type ExtractedContent struct {
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
}

// Reason enumerates the fixed vocabulary of policy-driven rejections.
// A rejection is an expected outcome and is always recorded as an
// unwanted article; it is never an error.
type Reason string

const (
	ReasonInvalidURL     Reason = "invalid_url"
	ReasonFilteredOut    Reason = "filtered_out"
	ReasonDuplicate      Reason = "duplicate"
	ReasonDateNotRecent  Reason = "date_not_recent"
	ReasonBlacklist      Reason = "blacklist"
	ReasonNoKeywords     Reason = "no_keywords"
	ReasonSimilarContent Reason = "similar_content"
)

// Reasons lists every rejection reason in a stable order.
var Reasons = []Reason{
	ReasonInvalidURL,
	ReasonFilteredOut,
	ReasonDuplicate,
	ReasonDateNotRecent,
	ReasonBlacklist,
	ReasonNoKeywords,
	ReasonSimilarContent,
}

// ErrorKind enumerates the fixed vocabulary of unexpected collaborator
// failures. Errors are recorded only in run metrics; the candidate is
// dropped without a store record.
type ErrorKind string

const (
	ErrorURLProcessing      ErrorKind = "url_processing"
	ErrorContentExtraction  ErrorKind = "content_extraction"
	ErrorDateParse          ErrorKind = "date_parse"
	ErrorAnalysisGeneration ErrorKind = "analysis_generation"
	ErrorImageGeneration    ErrorKind = "image_generation"
	ErrorDatabaseSave       ErrorKind = "database_save"
	ErrorUnexpected         ErrorKind = "unexpected"
)

// ErrorKinds lists every error kind in a stable order.
var ErrorKinds = []ErrorKind{
	ErrorURLProcessing,
	ErrorContentExtraction,
	ErrorDateParse,
	ErrorAnalysisGeneration,
	ErrorImageGeneration,
	ErrorDatabaseSave,
	ErrorUnexpected,
}

// Rejection tags a gate decision with its reason and a short
// human-readable detail for the unwanted record.
type Rejection struct {
	Reason Reason
	Detail string
}

// Report is the final outcome of one pipeline run over one bot's
// candidate list. Success reflects whole-run health only; individual
// rejections are normal outcomes and never fail a run.
type Report struct {
	RunID   string
	BotID   string
	Success bool
	Message string
	Metrics Snapshot
}
