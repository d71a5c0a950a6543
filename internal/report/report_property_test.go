package report

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func genResult() *rapid.Generator[CheckResult] {
	return rapid.SampledFrom([]CheckResult{Success, Failure, Unknown})
}

func TestVerdictProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		results := rapid.SliceOf(genResult()).Draw(t, "results")

		r := New()
		allSuccess := true
		for i, res := range results {
			r.AddStep(fmt.Sprintf("step-%d", i), res, "")
			if res != Success {
				allSuccess = false
			}
		}

		if r.Success() != allSuccess {
			t.Fatalf("verdict %v for results %v", r.Verdict(), results)
		}
		if len(r.Steps) != len(results) {
			t.Fatalf("expected %d steps, got %d", len(results), len(r.Steps))
		}
	})
}

func TestAnyFailureForcesFailureProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		results := rapid.SliceOf(genResult()).Draw(t, "results")
		pos := rapid.IntRange(0, len(results)).Draw(t, "pos")

		r := New()
		for i, res := range results[:pos] {
			r.AddStep(fmt.Sprintf("before-%d", i), res, "")
		}
		r.AddStep("failing", Failure, "")
		for i, res := range results[pos:] {
			r.AddStep(fmt.Sprintf("after-%d", i), res, "")
		}

		if r.Verdict() != Failure {
			t.Fatalf("a failing step must force a failed verdict")
		}
	})
}
