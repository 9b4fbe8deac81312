package csv_test

import (
	"strings"
	"testing"

	"github.com/shapestone/shape-csvcodec/pkg/csv"
)

// FuzzRoundTrip writes a row of fuzzed string fields and checks that parsing
// the output yields the same fields, for any chunk size.
func FuzzRoundTrip(f *testing.F) {
	f.Add("a", "b,c", uint8(1))
	f.Add("", " padded ", uint8(3))
	f.Add("say \"hi\"", "line\r\nbreak", uint8(7))
	f.Add("\t", "\"", uint8(0))

	w, err := csv.NewWriter(csv.DefaultWriterOptions())
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, a, b string, chunk uint8) {
		row := []any{a, b}
		line, err := w.GenerateRow(row)
		if err != nil {
			t.Fatalf("GenerateRow: %v", err)
		}

		cfg := csv.DefaultConfig()
		cfg.ChunkSize = int(chunk) + 1
		rows, err := csv.Parse(strings.NewReader(line), cfg)
		if err != nil {
			t.Fatalf("parsing %q: %v", line, err)
		}
		if len(rows) != 1 {
			t.Fatalf("parsing %q: got %d rows, want 1", line, len(rows))
		}
		got := rows[0].Values
		if len(got) != 2 || got[0] != a || got[1] != b {
			t.Fatalf("round trip of %q: got %#v", line, got)
		}
	})
}
