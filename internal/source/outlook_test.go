package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

func TestOutlookGetBusyIntervals(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"startDateTime": r.URL.Query().Get("startDateTime"),
			"$select":       r.URL.Query().Get("$select"),
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{
					"subject": "Team standup",
					"showAs":  "busy",
					"start":   map[string]string{"dateTime": "2026-08-26T10:00:00.0000000", "timeZone": "UTC"},
					"end":     map[string]string{"dateTime": "2026-08-26T10:30:00.0000000", "timeZone": "UTC"},
				},
				{
					"subject": "Vacation",
					"showAs":  "oof",
					"start":   map[string]string{"dateTime": "2026-08-27T00:00:00.0000000", "timeZone": "UTC"},
					"end":     map[string]string{"dateTime": "2026-08-28T00:00:00.0000000", "timeZone": "UTC"},
				},
				{
					"subject": "Maybe lunch",
					"showAs":  "tentative",
					"start":   map[string]string{"dateTime": "2026-08-26T12:00:00.0000000", "timeZone": "UTC"},
					"end":     map[string]string{"dateTime": "2026-08-26T13:00:00.0000000", "timeZone": "UTC"},
				},
				{
					"subject": "Focus block",
					"showAs":  "workingElsewhere",
					"start":   map[string]string{"dateTime": "2026-08-26T14:00:00.0000000", "timeZone": "UTC"},
					"end":     map[string]string{"dateTime": "2026-08-26T15:00:00.0000000", "timeZone": "UTC"},
				},
				{
					"subject": "Broken event",
					"showAs":  "busy",
					"start":   map[string]string{"dateTime": "garbage", "timeZone": "UTC"},
					"end":     map[string]string{"dateTime": "2026-08-26T16:00:00.0000000", "timeZone": "UTC"},
				},
			},
		})
	}))
	defer server.Close()

	o := NewOutlookSource(staticTokens{}, time.UTC, zap.NewNop())
	o.baseURL = server.URL

	start := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	intervals, err := o.GetBusyIntervals(context.Background(), 1, start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}

	// учитываются только busy и oof; tentative, workingElsewhere и
	// событие с мусорной меткой пропущены
	if len(intervals) != 2 {
		t.Fatalf("expected two intervals, got %d: %v", len(intervals), intervals)
	}
	if !intervals[0].Start.Equal(time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first start %s", intervals[0].Start)
	}
	if intervals[1].Source != model.ProviderOutlook {
		t.Errorf("unexpected source %s", intervals[1].Source)
	}

	if gotQuery["startDateTime"] != "2026-08-24T00:00:00Z" {
		t.Errorf("unexpected startDateTime %q", gotQuery["startDateTime"])
	}
	if gotQuery["$select"] != "subject,start,end,showAs" {
		t.Errorf("unexpected $select %q", gotQuery["$select"])
	}
}

func TestOutlookServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	o := NewOutlookSource(staticTokens{}, time.UTC, zap.NewNop())
	o.baseURL = server.URL

	start := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	_, err := o.GetBusyIntervals(context.Background(), 1, start, start.AddDate(0, 0, 7))
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestShowAsBusy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"busy", true},
		{"Busy", true},
		{"oof", true},
		{"OOF", true},
		{"free", false},
		{"tentative", false},
		{"workingElsewhere", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := showAsBusy(tt.in); got != tt.want {
			t.Errorf("showAsBusy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseGraphTime(t *testing.T) {
	got, err := parseGraphTime(graphDateTime{DateTime: "2026-08-26T10:00:00.0000000", TimeZone: "Pacific Standard Time"})
	if err != nil {
		t.Fatal(err)
	}
	// неизвестный Windows-идентификатор пояса трактуется как UTC
	if !got.Equal(time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %s", got)
	}

	got, err = parseGraphTime(graphDateTime{DateTime: "2026-08-26T10:00:00.0000000", TimeZone: "America/New_York"})
	if err != nil {
		t.Fatal(err)
	}
	ny, _ := time.LoadLocation("America/New_York")
	if !got.Equal(time.Date(2026, time.August, 26, 10, 0, 0, 0, ny)) {
		t.Errorf("IANA zone must be honored, got %s", got)
	}

	if _, err := parseGraphTime(graphDateTime{DateTime: "garbage"}); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}
