package provenance

import (
	"net/url"
	"strings"
)

// TrackRecord scores a source's reliability, 0-1, from its domain. Primary
// sources (government, academic, standards bodies) score highest;
// encyclopedias and major publishers mid; everything else low. The score
// feeds claim weighting at aggregation time.
type TrackRecord struct {
	primary   map[string]bool
	secondary map[string]bool
	overrides map[string]float64
}

// Score bands per tier
const (
	scorePrimary   = 0.9
	scoreSecondary = 0.65
	scoreTertiary  = 0.35
	scoreUnknown   = 0.35
)

// NewTrackRecord creates a classifier with the built-in domain lists and
// optional per-domain overrides.
func NewTrackRecord(overrides map[string]float64) *TrackRecord {
	tr := &TrackRecord{
		primary:   make(map[string]bool),
		secondary: make(map[string]bool),
		overrides: overrides,
	}

	for _, d := range []string{
		"who.int", "un.org", "europa.eu", "nature.com", "science.org",
		"nejm.org", "thelancet.com", "arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"courtlistener.com", "supremecourt.gov",
	} {
		tr.primary[d] = true
	}

	for _, d := range []string{
		"reuters.com", "apnews.com", "bbc.com", "bbc.co.uk", "nytimes.com",
		"washingtonpost.com", "theguardian.com", "economist.com", "ft.com",
		"britannica.com", "wikipedia.org",
	} {
		tr.secondary[d] = true
	}

	return tr
}

// Score rates the URL's source, 0-1
func (t *TrackRecord) Score(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return scoreUnknown
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return scoreUnknown
	}

	if t.overrides != nil {
		if s, ok := t.overrides[host]; ok {
			return clamp01(s)
		}
	}

	if matchDomain(host, t.primary) {
		return scorePrimary
	}

	// Government and academic TLDs are primary even when unlisted
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") ||
		strings.HasSuffix(host, ".ac.uk") || strings.HasSuffix(host, ".gov.uk") {
		return scorePrimary
	}

	if matchDomain(host, t.secondary) {
		return scoreSecondary
	}

	return scoreTertiary
}

// matchDomain checks the host against a domain set, including subdomains
func matchDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for d := range domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
