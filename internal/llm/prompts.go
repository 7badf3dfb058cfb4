package llm

import (
	"fmt"
	"strings"

	"github.com/veridict/veridict/internal/model"
)

const systemStructured = "You are a careful analysis engine. Respond with a single JSON object matching the requested schema. No prose outside the JSON."

// BuildDecompositionPrompt asks the model to decompose an input claim into
// a thesis, analytical contexts and sub-claims.
func BuildDecompositionPrompt(input string) string {
	return fmt.Sprintf(`Decompose the following input into a thesis, analytical contexts, and checkable sub-claims.

Schema:
{
  "thesis": "one-sentence statement of what the input asserts",
  "contexts": [{"name": "...", "subject": "...", "temporal": "...", "type": "legal|scientific|historical|statistical|event|general", "relevance": 0.0-1.0}],
  "claims": [{"text": "...", "role": "core|supporting|attribution", "check_worthiness": "high|medium|low|opinion", "context_name": "name of a context above or empty", "centrality": 0.0-1.0, "tangential": false, "depends_on": [indices]}]
}

Rules:
- A context is a bounded analytical frame (one legal proceeding, one study, one event). Do not invent frames the input does not touch.
- Mark a claim "core" only if the thesis stands or falls with it.
- Leave context_name empty when a claim does not clearly belong to one frame.
- Pure predictions and pure opinions get check_worthiness "opinion".

Input:
%s`, input)
}

// BuildExtractionPrompt asks the model to extract facts from fetched page
// text only. The model must quote excerpts verbatim from the supplied text;
// anything it cannot quote does not become a fact.
func BuildExtractionPrompt(pageText, sourceURL string, claims []model.SubClaim, contexts []model.AnalysisContext) string {
	var b strings.Builder

	b.WriteString("Extract facts relevant to the claims below, using ONLY the page text provided at the end.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(`{"facts": [{"text": "...", "excerpt": "verbatim quote from the page text", "category": "statistic|statement|finding|event|background", "direction": "supporting|contradicting|neutral", "context_name": "one of the known contexts or empty", "methodology": "", "population": "", "timeframe": "", "limitations": ""}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- The excerpt MUST be copied verbatim from the page text. Do not paraphrase, summarize, or compose.\n")
	b.WriteString("- If the page text contains nothing relevant, return {\"facts\": []}.\n")
	b.WriteString("- Leave context_name empty when you cannot confidently attribute the fact to one known context. Never guess the nearest one.\n")
	b.WriteString("- Fill methodology/population/timeframe/limitations only from what the page itself states about its own evidence.\n\n")

	b.WriteString("Claims being researched:\n")
	for _, c := range claims {
		fmt.Fprintf(&b, "- %s\n", c.Text)
	}

	b.WriteString("\nKnown contexts:\n")
	for _, c := range contexts {
		if c.IsUnscoped() {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Type)
	}

	fmt.Fprintf(&b, "\nSource URL: %s\n\nPage text:\n%s\n", sourceURL, pageText)
	return b.String()
}

// BuildReevaluationPrompt asks the model to re-assess claim factuality now
// that evidence exists.
func BuildReevaluationPrompt(claims []model.SubClaim, facts []model.ExtractedFact) string {
	var b strings.Builder

	b.WriteString("Re-assess whether each claim below is a factual, checkable assertion given the gathered evidence.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(`{"assessments": [{"claim_id": "...", "factual": true, "reason": "..."}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Assess factuality (is this checkable against evidence?), not truth.\n")
	b.WriteString("- Base the assessment only on the claims and evidence listed here.\n\n")

	b.WriteString("Claims:\n")
	for _, c := range claims {
		fmt.Fprintf(&b, "- [%s] %s\n", c.ID, c.Text)
	}

	b.WriteString("\nEvidence:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", f.Text, f.ClaimDirection, f.SourceURL)
	}

	return b.String()
}

// BuildPolarityPrompt asks whether a claim's truth-direction logically
// negates the thesis.
func BuildPolarityPrompt(thesis, claimText string) string {
	return fmt.Sprintf(`Determine whether the claim below asserts the logical negation of the thesis. Answer with JSON only.

Schema:
{"negation": true|false, "reason": "..."}

A claim negates the thesis when the claim being TRUE makes the thesis FALSE. A claim that merely qualifies, narrows, or is unrelated to the thesis does not negate it.

Thesis: %s
Claim: %s`, thesis, claimText)
}

// BuildSupplementalPrompt asks for additional claims when coverage is thin
func BuildSupplementalPrompt(thesis string, existing []model.SubClaim, thinContexts []model.AnalysisContext) string {
	var b strings.Builder

	b.WriteString("Coverage of some analytical contexts is thin. Propose additional checkable sub-claims for them.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(`{"thesis": "restate the thesis", "contexts": [], "claims": [{"text": "...", "role": "supporting", "check_worthiness": "high|medium|low", "context_name": "...", "centrality": 0.0-1.0}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Do not repeat or rephrase existing claims.\n")
	b.WriteString("- Only propose claims for the thin contexts listed.\n\n")

	fmt.Fprintf(&b, "Thesis: %s\n\nThin contexts:\n", thesis)
	for _, c := range thinContexts {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Subject)
	}

	b.WriteString("\nExisting claims:\n")
	for _, c := range existing {
		fmt.Fprintf(&b, "- %s\n", c.Text)
	}

	return b.String()
}
