package main

import "testing"

func TestDetectFormatPrefersExplicitFlagOverExtension(t *testing.T) {
	if got := detectFormat("log.csv", "XES"); got != "xes" {
		t.Fatalf("expected an explicit format flag to win and be lowercased, got %q", got)
	}
}

func TestDetectFormatFallsBackToExtension(t *testing.T) {
	cases := map[string]string{
		"log.xes":    "xes",
		"log.CSV":    "csv",
		"log.jsonl":  "jsonl",
		"log.ndjson": "jsonl",
		"log.txt":    "",
	}
	for path, want := range cases {
		if got := detectFormat(path, ""); got != want {
			t.Errorf("detectFormat(%q, \"\") = %q, want %q", path, got, want)
		}
	}
}

func TestOptionsFromFlagsReflectsPackageFlagVars(t *testing.T) {
	kFlag = 3
	coarsenFlag = true
	ignoreTypesFlag = []string{"noop"}
	defer func() {
		kFlag = 2
		coarsenFlag = false
		ignoreTypesFlag = nil
	}()

	opts := optionsFromFlags()
	if opts.K != 3 {
		t.Fatalf("expected K=3, got %d", opts.K)
	}
	if !opts.Coarsen {
		t.Fatal("expected Coarsen to be true")
	}
	if len(opts.IgnoreInvsOverETypeSet) != 1 || opts.IgnoreInvsOverETypeSet[0] != "noop" {
		t.Fatalf("expected IgnoreInvsOverETypeSet=[noop], got %v", opts.IgnoreInvsOverETypeSet)
	}
}
