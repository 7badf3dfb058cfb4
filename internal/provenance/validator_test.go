package provenance

import (
	"strings"
	"testing"

	"github.com/veridict/veridict/internal/model"
)

func validFact() model.ExtractedFact {
	return model.ExtractedFact{
		ID:            "f1",
		Text:          "The statute passed in 2016",
		SourceURL:     "https://www.legifrance.gouv.fr/loi-travail",
		SourceExcerpt: "The law was adopted by the National Assembly on 21 July 2016.",
	}
}

func TestValidator_AcceptsWellFormedFact(t *testing.T) {
	v := NewValidator(model.ProvenanceConfig{MinExcerptLength: 20, ParaphraseReject: true}, nil)

	d := v.Validate(validFact())
	if !d.Accepted {
		t.Fatalf("Expected acceptance, rejected: %s", d.Reason)
	}
	if d.Flagged {
		t.Error("Clean fact must not be flagged")
	}
}

func TestValidator_RejectsSentinelHost(t *testing.T) {
	v := NewValidator(model.ProvenanceConfig{}, nil)

	fact := validFact()
	fact.SourceURL = "https://gemini-grounded-search/result-3"

	d := v.Validate(fact)
	if d.Accepted {
		t.Fatal("Grounded-search sentinel URLs must be rejected")
	}
	if !strings.Contains(d.Reason, "sentinel") {
		t.Errorf("Expected sentinel rejection reason, got %q", d.Reason)
	}
}

func TestValidator_RejectsNonHTTPAndPrivateHosts(t *testing.T) {
	v := NewValidator(model.ProvenanceConfig{}, nil)

	cases := []string{
		"",
		"ftp://archive.example.com/file",
		"https://localhost/page",
		"https://127.0.0.1/page",
		"https://10.0.0.5/internal",
		"https://intranet/page",
		"https://service.internal/page",
	}
	for _, u := range cases {
		fact := validFact()
		fact.SourceURL = u
		if d := v.Validate(fact); d.Accepted {
			t.Errorf("Expected rejection for URL %q", u)
		}
	}
}

func TestValidator_RejectsShortExcerpt(t *testing.T) {
	v := NewValidator(model.ProvenanceConfig{MinExcerptLength: 20}, nil)

	fact := validFact()
	fact.SourceExcerpt = "Too short."

	d := v.Validate(fact)
	if d.Accepted {
		t.Fatal("Excerpt below minimum length must be rejected")
	}
	if !strings.Contains(d.Reason, "too short") {
		t.Errorf("Expected length rejection reason, got %q", d.Reason)
	}
}

func TestValidator_ParaphraseSeverityConfigurable(t *testing.T) {
	fact := validFact()
	fact.SourceExcerpt = "Based on the search results, the law was adopted in 2016."

	rejecting := NewValidator(model.ProvenanceConfig{ParaphraseReject: true}, nil)
	if d := rejecting.Validate(fact); d.Accepted {
		t.Error("Reject severity must reject paraphrase-matching excerpts")
	}

	advisory := NewValidator(model.ProvenanceConfig{ParaphraseReject: false}, nil)
	d := advisory.Validate(fact)
	if !d.Accepted {
		t.Fatalf("Advisory severity must admit paraphrase-matching excerpts, rejected: %s", d.Reason)
	}
	if !d.Flagged {
		t.Error("Advisory severity must flag the admitted fact")
	}
}

func TestValidator_FilterFactsCountsRejections(t *testing.T) {
	v := NewValidator(model.ProvenanceConfig{MinExcerptLength: 20, ParaphraseReject: true}, nil)

	good := validFact()
	bad := validFact()
	bad.ID = "f2"
	bad.SourceURL = "https://grounded-search/answer"

	accepted, rejected, decisions := v.FilterFacts([]model.ExtractedFact{good, bad})
	if len(accepted) != 1 || accepted[0].ID != "f1" {
		t.Errorf("Expected only the good fact accepted, got %d", len(accepted))
	}
	if rejected != 1 {
		t.Errorf("Expected 1 rejection, got %d", rejected)
	}
	if len(decisions) != 2 {
		t.Errorf("Expected a decision per fact, got %d", len(decisions))
	}
}

func TestCheckURL_AcceptsPublicPages(t *testing.T) {
	for _, u := range []string{
		"https://www.reuters.com/article/x",
		"http://example.org/page?id=1",
	} {
		if reason := CheckURL(u); reason != "" {
			t.Errorf("Expected %q accepted, got rejection: %s", u, reason)
		}
	}
}
