package tasks

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestParseMessageDate(t *testing.T) {
	logger := log.New(nil)

	cases := []struct {
		name string
		raw  string
		ts   int64
		want time.Time
	}{
		{"iso date", "2021-03-14", 0, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"slash date", "2021/03/14", 0, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"us date", "03/14/2021", 0, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"day first when month invalid", "25/12/2020", 0, time.Date(2020, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"underscore date", "2021_03_14", 0, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"datetime", "2021-03-14 10:30:00", 0, time.Date(2021, 3, 14, 10, 30, 0, 0, time.UTC)},
		{"whitespace trimmed", "  2021-03-14  ", 0, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"garbage falls back to timestamp", "next sunday", 1615680000, time.Unix(1615680000, 0).UTC()},
		{"empty falls back to timestamp", "", 1615680000, time.Unix(1615680000, 0).UTC()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMessageDate(tc.raw, tc.ts, logger)
			if !got.Equal(tc.want) {
				t.Errorf("ParseMessageDate(%q, %d) = %v, want %v", tc.raw, tc.ts, got, tc.want)
			}
		})
	}

	t.Run("no date and no timestamp uses current time", func(t *testing.T) {
		before := time.Now().UTC()
		got := ParseMessageDate("garbage", 0, logger)
		after := time.Now().UTC()

		if got.Before(before) || got.After(after) {
			t.Errorf("expected a current timestamp, got %v", got)
		}
	})
}
