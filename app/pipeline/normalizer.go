package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/avlasov/newsgate/app/bot"
)

// Paths that never lead to articles, checked on every bot in addition
// to the profile's own excluded terms.
var defaultExcludedTerms = []string{
	"/live/",
	"/video/",
	"/videos/",
	"/gallery/",
	"/tag/",
	"/author/",
	"/about",
	"/contact",
	"/privacy",
	"/terms",
}

var socialDomainPattern = regexp.MustCompile(
	`(?:^|\.)(?:twitter\.com|x\.com|facebook\.com|instagram\.com|tiktok\.com|youtube\.com|youtu\.be|t\.me|telegram\.me|vk\.com|reddit\.com)$`)

// Normalizer resolves a source-provided link to a canonical article URL
// and rejects links matching exclusion patterns.
type Normalizer struct {
	resolver LinkResolver
}

func NewNormalizer(resolver LinkResolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Run returns the canonical URL, a rejection, or an error. Exactly one
// of the three is meaningful. It is pure over network state: no side
// effects beyond the resolver call.
func (n *Normalizer) Run(ctx context.Context, rawLink string, profile *bot.Profile) (string, *Rejection, error) {
	link := strings.TrimSpace(rawLink)
	if link == "" {
		return "", &Rejection{Reason: ReasonInvalidURL, Detail: "empty link"}, nil
	}

	if n.isRedirector(link, profile) {
		resolved, err := n.resolver.Resolve(ctx, link)
		if err != nil {
			return "", nil, fmt.Errorf("resolve link %s: %w", link, err)
		}
		if resolved == "" {
			return "", &Rejection{Reason: ReasonInvalidURL, Detail: "redirector resolved to empty URL"}, nil
		}
		link = resolved
	}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", &Rejection{Reason: ReasonInvalidURL, Detail: fmt.Sprintf("not a valid article URL: %s", link)}, nil
	}

	if rejection := n.checkExclusions(parsed, profile); rejection != nil {
		return "", rejection, nil
	}

	return link, nil, nil
}

func (n *Normalizer) isRedirector(link string, profile *bot.Profile) bool {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := strings.ToLower(parsed.Host)
	for _, redirector := range profile.Settings.RedirectorHosts {
		if host == strings.ToLower(redirector) {
			return true
		}
	}
	return false
}

func (n *Normalizer) checkExclusions(parsed *url.URL, profile *bot.Profile) *Rejection {
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	if socialDomainPattern.MatchString(host) {
		return &Rejection{Reason: ReasonFilteredOut, Detail: fmt.Sprintf("social media domain: %s", host)}
	}

	lowered := strings.ToLower(parsed.String())
	for _, term := range defaultExcludedTerms {
		if strings.Contains(lowered, term) {
			return &Rejection{Reason: ReasonFilteredOut, Detail: fmt.Sprintf("URL contains excluded term '%s'", term)}
		}
	}
	for _, term := range profile.Settings.ExcludedTerms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			return &Rejection{Reason: ReasonFilteredOut, Detail: fmt.Sprintf("URL contains excluded term '%s'", term)}
		}
	}

	return nil
}
