package models

import "testing"

func TestHasQuota(t *testing.T) {
	u := User{EmailQuota: 1000, UsedQuota: 900}

	cases := []struct {
		required int64
		want     bool
	}{
		{required: 50, want: true},
		{required: 100, want: true}, // exactly at the ceiling
		{required: 150, want: false},
		{required: 0, want: true},
	}

	for _, tc := range cases {
		if got := u.HasQuota(tc.required); got != tc.want {
			t.Errorf("HasQuota(%d) = %v, want %v", tc.required, got, tc.want)
		}
	}
}

func TestUpdateQuota(t *testing.T) {
	cases := []struct {
		name  string
		start int64
		delta int64
		want  int64
	}{
		{name: "add", start: 100, delta: 50, want: 150},
		{name: "subtract", start: 100, delta: -40, want: 60},
		{name: "clamp at zero", start: 100, delta: -500, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := User{UsedQuota: tc.start}
			u.UpdateQuota(tc.delta)
			if u.UsedQuota != tc.want {
				t.Errorf("UsedQuota = %d, want %d", u.UsedQuota, tc.want)
			}
		})
	}
}

func TestQuotaUsagePercentage(t *testing.T) {
	u := User{EmailQuota: 1000, UsedQuota: 250}
	if got := u.QuotaUsagePercentage(); got != 25 {
		t.Errorf("QuotaUsagePercentage() = %v, want 25", got)
	}
	zero := User{UsedQuota: 10}
	if got := zero.QuotaUsagePercentage(); got != 0 {
		t.Errorf("zero-quota percentage = %v, want 0", got)
	}
}
