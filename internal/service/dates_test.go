package service

import (
	"testing"
	"time"
)

func TestParseRelativeDate(t *testing.T) {
	// Wednesday, March 11 2026, 15:00 local.
	ref := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{
			name: "tomorrow",
			text: "dentist appointment tomorrow",
			want: ref.AddDate(0, 0, 1),
			ok:   true,
		},
		{
			name: "tonight keeps reference time",
			text: "concert tonight",
			want: ref,
			ok:   true,
		},
		{
			name: "in N days",
			text: "flight leaves in 3 days",
			want: ref.AddDate(0, 0, 3),
			ok:   true,
		},
		{
			name: "in one week",
			text: "review due in 1 week",
			want: ref.AddDate(0, 0, 7),
			ok:   true,
		},
		{
			name: "in N weeks",
			text: "marathon in 2 weeks",
			want: ref.AddDate(0, 0, 14),
			ok:   true,
		},
		{
			name: "upcoming weekday",
			text: "meeting on friday",
			want: ref.AddDate(0, 0, 2),
			ok:   true,
		},
		{
			name: "next weekday wraps the week",
			text: "lunch next monday",
			want: ref.AddDate(0, 0, 5),
			ok:   true,
		},
		{
			name: "same weekday means next week",
			text: "call on wednesday",
			want: ref.AddDate(0, 0, 7),
			ok:   true,
		},
		{
			name: "month and day resolve to noon",
			text: "wedding on june 20th",
			want: time.Date(2026, time.June, 20, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "passed month day rolls to next year",
			text: "birthday on january 5",
			want: time.Date(2027, time.January, 5, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "numeric month day",
			text: "deadline 6/15",
			want: time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "numeric with two digit year",
			text: "trip on 7/4/27",
			want: time.Date(2027, time.July, 4, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "numeric with full year",
			text: "release on 12-01-2026",
			want: time.Date(2026, time.December, 1, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "passed numeric date rolls forward",
			text: "anniversary on 2/14",
			want: time.Date(2027, time.February, 14, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "no date at all",
			text: "likes long walks on the beach",
			ok:   false,
		},
		{
			name: "out of range numeric ignored",
			text: "score was 25/40",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRelativeDate(tt.text, ref)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
