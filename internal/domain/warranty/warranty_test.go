package warranty

import (
	"testing"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRemainingDaysRoundsUpAndFloorsAtZero(t *testing.T) {
	expires := t0.Add(7 * Day)

	cases := []struct {
		now  time.Time
		want int
	}{
		{t0, 7},
		{t0.Add(2 * Day), 5},
		{t0.Add(2*Day + time.Hour), 5},
		{t0.Add(6*Day + 23*time.Hour), 1},
		{expires, 0},
		{expires.Add(48 * time.Hour), 0},
	}

	for _, tc := range cases {
		if got := RemainingDays(expires, tc.now); got != tc.want {
			t.Fatalf("RemainingDays at %s: expected %d, got %d", tc.now, tc.want, got)
		}
	}
}

func TestOfDerivesFromFinishedAt(t *testing.T) {
	finished := t0
	ap := &models.Appointment{FinishedAt: &finished, WarrantyDays: 3}

	st := Of(ap, t0.Add(Day))
	if st.Kind != KindActive || !st.Derived {
		t.Fatalf("expected derived active state, got %+v", st)
	}
	if !st.ExpiresAt.Equal(t0.Add(3 * Day)) {
		t.Fatalf("unexpected expiry %s", st.ExpiresAt)
	}

	if st := Of(ap, t0.Add(4*Day)); st.Kind != KindExpired {
		t.Fatalf("expected expired, got %s", st.Kind)
	}

	if st := Of(&models.Appointment{}, t0); st.Kind != KindNotApplicable {
		t.Fatalf("expected not applicable, got %s", st.Kind)
	}
}

func TestPauseAndResumeKeepRemainingDays(t *testing.T) {
	expires := t0.Add(7 * Day)
	ap := &models.Appointment{WarrantyExpiresAt: &expires}

	st := Pause(ap, t0.Add(2*Day))
	if st.Kind != KindPaused || st.RemainingDays != 5 {
		t.Fatalf("unexpected pause state %+v", st)
	}
	if !IsPaused(ap) {
		t.Fatal("pause fields should be set together")
	}
	if got := Of(ap, t0.Add(30*Day)); got.Kind != KindPaused {
		t.Fatalf("paused warranty must not expire, got %s", got.Kind)
	}

	resumeAt := t0.Add(3 * Day)
	resumed, ok := Resume(ap, resumeAt)
	if !ok {
		t.Fatal("expected resume")
	}
	if !resumed.ExpiresAt.Equal(resumeAt.Add(5 * Day)) {
		t.Fatalf("expected expiry resume+5d, got %s", resumed.ExpiresAt)
	}
	if ap.WarrantyPausedAt != nil || ap.WarrantyRemainingDays != nil {
		t.Fatal("pause fields should be cleared together")
	}

	if _, ok := Resume(ap, resumeAt); ok {
		t.Fatal("resume without pause should report false")
	}
}

func TestForceExpireClearsPause(t *testing.T) {
	expires := t0.Add(7 * Day)
	ap := &models.Appointment{WarrantyExpiresAt: &expires}
	Pause(ap, t0)

	now := t0.Add(Day)
	ForceExpire(ap, now)

	if IsPaused(ap) {
		t.Fatal("force expire must clear pause")
	}
	if ap.WarrantyExpiresAt == nil || ap.WarrantyExpiresAt.After(now) {
		t.Fatalf("expected expiry <= now, got %v", ap.WarrantyExpiresAt)
	}
}
