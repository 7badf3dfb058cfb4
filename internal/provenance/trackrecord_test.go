package provenance

import "testing"

func TestTrackRecord_TierScores(t *testing.T) {
	tr := NewTrackRecord(nil)

	cases := []struct {
		url  string
		want float64
	}{
		{"https://www.who.int/report", scorePrimary},
		{"https://pubmed.ncbi.nlm.nih.gov/12345", scorePrimary},
		{"https://www.cdc.gov/data", scorePrimary},
		{"https://www.ox.ac.uk/study", scorePrimary},
		{"https://www.reuters.com/article", scoreSecondary},
		{"https://en.wikipedia.org/wiki/Thing", scoreSecondary},
		{"https://randomblog.example.com/post", scoreTertiary},
		{"not a url at %%", scoreUnknown},
	}

	for _, c := range cases {
		if got := tr.Score(c.url); got != c.want {
			t.Errorf("Score(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestTrackRecord_OverridesWin(t *testing.T) {
	tr := NewTrackRecord(map[string]float64{"randomblog.example.com": 0.8})

	if got := tr.Score("https://randomblog.example.com/post"); got != 0.8 {
		t.Errorf("Expected override score 0.8, got %v", got)
	}
}

func TestTrackRecord_OverridesClamped(t *testing.T) {
	tr := NewTrackRecord(map[string]float64{"hype.example.com": 7.5})

	if got := tr.Score("https://hype.example.com/"); got != 1.0 {
		t.Errorf("Expected clamped score 1.0, got %v", got)
	}
}
