package model

import (
	"reflect"
	"testing"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"14:30", 870, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"9:00 AM", 540, false},
		{"2:30 PM", 870, false},
		{"12:00 AM", 0, false},
		{"12:00 PM", 720, false},
		{"12:30 am", 30, false},
		{"5:00 pm", 1020, false},
		{"11:59 PM", 1439, false},
		{"25:00", 0, true},
		{"13:00 PM", 0, true},
		{"0:30 AM", 0, true},
		{"09:75", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ToMinutes(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ToMinutes(%q): expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ToMinutes(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromMinutes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "12:00 AM"},
		{30, "12:30 AM"},
		{540, "9:00 AM"},
		{600, "10:00 AM"},
		{719, "11:59 AM"},
		{720, "12:00 PM"},
		{750, "12:30 PM"},
		{1020, "5:00 PM"},
		{1439, "11:59 PM"},
		{1440, "12:00 AM"},
	}
	for _, tt := range tests {
		if got := FromMinutes(tt.in); got != tt.want {
			t.Errorf("FromMinutes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinutesRoundTrip(t *testing.T) {
	// каждая минута дня переживает цикл формат-разбор
	for m := 0; m < MinutesPerDay; m++ {
		got, err := ToMinutes(FromMinutes(m))
		if err != nil {
			t.Fatalf("minute %d: %v", m, err)
		}
		if got != m {
			t.Fatalf("minute %d round-tripped to %d", m, got)
		}
	}
}

func TestTimeRangeValid(t *testing.T) {
	tests := []struct {
		r    TimeRange
		want bool
	}{
		{TimeRange{540, 1020}, true},
		{TimeRange{0, MinutesPerDay}, true},
		{TimeRange{540, 540}, false},
		{TimeRange{600, 540}, false},
		{TimeRange{-10, 60}, false},
		{TimeRange{1400, 1500}, false},
	}
	for _, tt := range tests {
		if got := tt.r.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestNormalizeRanges(t *testing.T) {
	tests := []struct {
		name string
		in   []TimeRange
		want []TimeRange
	}{
		{
			"sorts by start",
			[]TimeRange{{780, 1020}, {540, 720}},
			[]TimeRange{{540, 720}, {780, 1020}},
		},
		{
			"merges overlapping",
			[]TimeRange{{540, 700}, {660, 1020}},
			[]TimeRange{{540, 1020}},
		},
		{
			"keeps adjacent separate",
			[]TimeRange{{540, 720}, {720, 1020}},
			[]TimeRange{{540, 720}, {720, 1020}},
		},
		{
			"drops invalid",
			[]TimeRange{{600, 540}, {540, 720}},
			[]TimeRange{{540, 720}},
		},
		{
			"contained range absorbed",
			[]TimeRange{{540, 1020}, {600, 660}},
			[]TimeRange{{540, 1020}},
		},
		{
			"all invalid yields nil",
			[]TimeRange{{700, 600}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRanges(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRanges(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntersectRanges(t *testing.T) {
	tests := []struct {
		name string
		a, b []TimeRange
		want []TimeRange
	}{
		{
			"simple overlap",
			[]TimeRange{{540, 1020}},
			[]TimeRange{{600, 1100}},
			[]TimeRange{{600, 1020}},
		},
		{
			"no overlap",
			[]TimeRange{{540, 600}},
			[]TimeRange{{600, 700}},
			nil,
		},
		{
			"multiple fragments",
			[]TimeRange{{540, 720}, {780, 1020}},
			[]TimeRange{{600, 840}},
			[]TimeRange{{600, 720}, {780, 840}},
		},
		{
			"empty side",
			[]TimeRange{{540, 720}},
			nil,
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntersectRanges(tt.a, tt.b); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IntersectRanges(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
