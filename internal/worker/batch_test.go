package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/veridict/veridict/internal/model"
)

// fakeAnalyzer implements ClaimAnalyzer
type fakeAnalyzer struct {
	shouldError bool
}

func (a *fakeAnalyzer) Run(ctx context.Context, input string) (*model.ResultGraph, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if a.shouldError {
		return nil, errors.New("analysis error")
	}
	return &model.ResultGraph{Thesis: input}, nil
}

func writeTempClaims(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "claims")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)

	claims := []string{"claim one", "claim two", "claim three"}
	results := processor.ProcessClaims(context.Background(), claims)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Claim, res.Error)
		}
		if res.Graph == nil {
			t.Errorf("expected result graph for %q", res.Claim)
		} else if res.Graph.Thesis != res.Claim {
			t.Errorf("result %q does not match submitted claim %q", res.Graph.Thesis, res.Claim)
		}
	}
}

func TestBatchProcessor_ProcessClaims_Error(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{shouldError: true}, 2)

	results := processor.ProcessClaims(context.Background(), []string{"claim one"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Graph != nil {
		t.Error("expected nil graph on error")
	}
}

func TestBatchProcessor_ProcessClaims_Empty(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)

	results := processor.ProcessClaims(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := writeTempClaims(t, `the earth is round
# comment
vaccines cause autism

the moon landing happened   `)

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{"the earth is round", "vaccines cause autism", "the moon landing happened"}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d", len(expected), len(claims))
	}
	for i, claim := range claims {
		if claim != expected[i] {
			t.Errorf("expected %q at index %d, got %q", expected[i], i, claim)
		}
	}
}

func TestReadClaimsFromFile_Deduplication(t *testing.T) {
	path := writeTempClaims(t, "the earth is round\nthe earth is round\n")

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}
	if len(claims) != 1 {
		t.Errorf("expected 1 claim after deduplication, got %d", len(claims))
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadClaimsFromFile("no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTempClaims(t, "claim one\nclaim two\n# comment\n\nclaim three\n")

	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)
	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestClaimResult_GetError(t *testing.T) {
	r1 := &ClaimResult{Claim: "ok"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	want := errors.New("analysis failed")
	r2 := &ClaimResult{Claim: "bad", Error: want}
	if r2.GetError() != want {
		t.Errorf("expected %v, got %v", want, r2.GetError())
	}
}
