package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestAlignRange(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
	to := time.Date(2024, 10, 12, 23, 59, 1, 0, time.UTC)

	f, e := AlignRange(from, to, "15")
	if !f.Equal(time.Date(2024, 10, 10, 10, 15, 0, 0, time.UTC)) || !e.Equal(time.Date(2024, 10, 12, 23, 45, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 15m range %v %v", f, e)
	}

	f, e = AlignRange(from, to, "D")
	if !f.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) || !e.Equal(time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected daily range %v %v", f, e)
	}
}

func TestUniqueSymbols(t *testing.T) {
	got := UniqueSymbols([]string{" aapl", "MSFT", "", "AAPL", "nvda "})
	want := []string{"AAPL", "MSFT", "NVDA"}
	if len(got) != len(want) {
		t.Fatalf("unexpected %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected %v", got)
		}
	}
}
