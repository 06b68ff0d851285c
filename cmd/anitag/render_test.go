package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"anitag/internal/anime"
	"anitag/internal/identification"
	"anitag/internal/selftest"
	"anitag/internal/workflow"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Tagged", statusOK, "12", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Tagged:", "[OK] 12")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Failed", statusWarn, "3", true)
	if !strings.HasPrefix(got, ansiYellow) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected yellow line, got %q", got)
	}
	if plain := renderStatusLine("Scanned", statusInfo, "3", true); strings.Contains(plain, "\x1b[") {
		t.Fatalf("info lines are not colored, got %q", plain)
	}
}

func TestCountKind(t *testing.T) {
	if countKind(0, statusWarn) != statusInfo || countKind(2, statusWarn) != statusWarn {
		t.Fatal("unexpected countKind mapping")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "only") || !strings.Contains(out, "╭") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestPrintSummaryListsFailures(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, workflow.Summary{
		RunID:    "abc",
		Scanned:  3,
		Tagged:   2,
		Duration: 1500 * time.Millisecond,
		Failures: []workflow.FileFailure{{Path: "/music/Bleach OP9.mp3", Stage: workflow.StageSelect, Reason: "Bleach has no OP9"}},
	}, false)
	text := out.String()
	for _, want := range []string{"== Batch abc ==", "[OK] 2", "[WARN] 1", "Bleach OP9.mp3", "Bleach has no OP9", "1.5s"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestPrintSelfTestReport(t *testing.T) {
	var out bytes.Buffer
	printSelfTestReport(&out, selftest.Report{
		Successes: 1,
		Failures:  1,
		HitRate:   0.5,
		FailureList: []selftest.Failure{
			{Filename: "Bleach OP1.mp3", ExpectedID: 1, FoundIDs: []int{2, 3}, Reason: selftest.ReasonMismatch},
		},
	}, "/stats/statsFromLastRun.json")
	text := out.String()
	for _, want := range []string{"hit rate 50.0%", "Bleach OP1.mp3", "2, 3", "mismatch"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestPrintResolveResult(t *testing.T) {
	record := &anime.ResolvedAnime{
		MalID: 16498, CrossRefID: 14536, Title: "Shingeki no Kyojin", Type: "TV", Year: 2013,
		Music: anime.Soundtrack{
			Opening: []anime.SongEntry{{Title: "Guren no Yumiya", Artist: "Linked Horizon", Number: 1}},
			Ending:  []anime.SongEntry{{Title: "Utsukushiki Zankoku na Sekai", Artist: "Yoko Hikasa", Number: 1}},
		},
	}
	var out bytes.Buffer
	printResolveResult(&out, identification.Result{
		Title:       "Attack on Titan",
		State:       identification.StateResolved,
		Source:      identification.SourceCatalog,
		Anime:       record,
		Transitions: []identification.State{identification.StateSearchingCatalog, identification.StateValidatingCandidate, identification.StateResolved},
		Rejections:  []identification.Rejection{{MalID: 1, Title: "Attack on Titan: Junior High", Reason: "soundtrack below track requirement"}},
	}, false)
	text := out.String()
	for _, want := range []string{
		"searching_catalog -> validating_candidate -> resolved",
		"Attack on Titan: Junior High",
		"Shingeki no Kyojin (TV 2013)",
		"OP1", "Guren no Yumiya", "ED1", "Yoko Hikasa",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("resolve output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintResolveResultUnresolved(t *testing.T) {
	var out bytes.Buffer
	result := identification.Result{Title: "Nope", State: identification.StateUnresolved}
	printResolveResult(&out, result, false)
	if !strings.Contains(out.String(), "[ERROR] unresolved") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !errors.Is(result.Err(), identification.ErrUnresolved) {
		t.Fatal("expected ErrUnresolved")
	}
}
