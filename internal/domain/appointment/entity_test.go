package appointment

import (
	"testing"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestParseStatusIsCaseSensitive(t *testing.T) {
	if _, err := ParseStatus("On the Way"); err != nil {
		t.Fatalf("expected On the Way to parse: %v", err)
	}
	for _, bad := range []string{"on the way", "Scheduled", "done", ""} {
		if _, err := ParseStatus(bad); !httperr.IsBusiness(err, "invalid_status") {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusInProgress},
		{StatusOnTheWay, StatusInProgress},
		{StatusInProgress, StatusFinished},
		{StatusFinished, StatusInWarranty},
		{StatusInWarranty, StatusCompleted},
		{StatusBackjob, StatusCompleted},
		{StatusConfirmed, StatusNoShow},
		{StatusBackjob, StatusCancelled},
	}
	for _, tr := range allowed {
		if err := CanTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tr[0], tr[1], err)
		}
	}

	denied := [][2]Status{
		{StatusCompleted, StatusScheduled},
		{StatusCancelled, StatusConfirmed},
		{StatusInWarranty, StatusBackjob},
		{StatusBackjob, StatusScheduled},
		{StatusFinished, StatusInProgress},
		{StatusInProgress, StatusNoShow},
		{StatusNoShow, StatusCompleted},
	}
	for _, tr := range denied {
		if err := CanTransition(tr[0], tr[1]); err == nil {
			t.Fatalf("%s -> %s should be denied", tr[0], tr[1])
		}
	}
}

func TestFinishWithWarrantyEntersWarranty(t *testing.T) {
	ap := &models.Appointment{Status: string(StatusInProgress), WarrantyDays: 7}

	if err := Finish(ap, t0); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if ap.Status != string(StatusInWarranty) {
		t.Fatalf("expected in-warranty, got %s", ap.Status)
	}
	if ap.FinishedAt == nil || !ap.FinishedAt.Equal(t0) {
		t.Fatalf("finished_at not stamped: %v", ap.FinishedAt)
	}
	if !ap.WarrantyExpiresAt.Equal(t0.Add(7 * warranty.Day)) {
		t.Fatalf("expected T0+7d, got %s", ap.WarrantyExpiresAt)
	}
}

func TestFinishWithoutWarrantyStaysFinished(t *testing.T) {
	ap := &models.Appointment{Status: string(StatusInProgress)}

	if err := Finish(ap, t0); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if ap.Status != string(StatusFinished) || ap.WarrantyExpiresAt != nil {
		t.Fatalf("unexpected state %s %v", ap.Status, ap.WarrantyExpiresAt)
	}
}

func TestFinishAfterRescheduleResumesPause(t *testing.T) {
	pausedAt := t0
	remaining := 4
	ap := &models.Appointment{
		Status:                string(StatusInProgress),
		WarrantyDays:          7,
		WarrantyPausedAt:      &pausedAt,
		WarrantyRemainingDays: &remaining,
	}

	now := t0.Add(10 * warranty.Day)
	if err := Finish(ap, now); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if ap.Status != string(StatusInWarranty) {
		t.Fatalf("expected in-warranty, got %s", ap.Status)
	}
	if !ap.WarrantyExpiresAt.Equal(now.Add(4 * warranty.Day)) {
		t.Fatalf("expected now+remaining, got %s", ap.WarrantyExpiresAt)
	}
	if warranty.IsPaused(ap) {
		t.Fatal("pause must be cleared")
	}
}

func TestEnterWarrantyUsesFinishedAtAsBase(t *testing.T) {
	finished := t0
	ap := &models.Appointment{Status: string(StatusFinished), FinishedAt: &finished, WarrantyDays: 3}

	if err := EnterWarranty(ap, t0.Add(warranty.Day)); err != nil {
		t.Fatalf("enter warranty: %v", err)
	}
	if !ap.WarrantyExpiresAt.Equal(t0.Add(3 * warranty.Day)) {
		t.Fatalf("expected finished_at+3d, got %s", ap.WarrantyExpiresAt)
	}
}

func TestCompleteForceExpires(t *testing.T) {
	expires := t0.Add(30 * warranty.Day)
	pausedAt := t0
	remaining := 9
	ap := &models.Appointment{
		Status:                string(StatusBackjob),
		WarrantyExpiresAt:     &expires,
		WarrantyPausedAt:      &pausedAt,
		WarrantyRemainingDays: &remaining,
	}

	now := t0.Add(warranty.Day)
	if err := Complete(ap, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if ap.WarrantyExpiresAt.After(now) {
		t.Fatalf("expected expiry <= now, got %s", ap.WarrantyExpiresAt)
	}
	if ap.CompletedAt == nil || warranty.IsPaused(ap) {
		t.Fatal("completed_at must be set and pause cleared")
	}
}

func TestCancelRequiresReason(t *testing.T) {
	ap := &models.Appointment{Status: string(StatusScheduled)}

	if err := Cancel(ap, "   ", "customer", t0); !httperr.IsBusiness(err, "reason_required") {
		t.Fatalf("expected reason_required, got %v", err)
	}

	expires := t0.Add(warranty.Day)
	ap.WarrantyExpiresAt = &expires
	if err := Cancel(ap, "changed plans", "customer", t0); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ap.CancelledBy != "customer" || ap.CancellationReason != "changed plans" {
		t.Fatalf("unexpected cancel fields %+v", ap)
	}
	if !ap.WarrantyExpiresAt.Equal(expires) {
		t.Fatal("cancel must not touch warranty fields")
	}
}

func TestStartBackjobAndReschedule(t *testing.T) {
	expires := t0.Add(7 * warranty.Day)
	ap := &models.Appointment{Status: string(StatusInWarranty), WarrantyExpiresAt: &expires, AvailabilityID: 1}

	st, err := StartBackjob(ap, t0.Add(2*warranty.Day))
	if err != nil {
		t.Fatalf("start backjob: %v", err)
	}
	if st.RemainingDays != 5 || ap.Status != string(StatusBackjob) {
		t.Fatalf("unexpected state %+v %s", st, ap.Status)
	}

	newDate := t0.Add(5 * warranty.Day)
	if err := Reschedule(ap, newDate, 9); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if ap.Status != string(StatusScheduled) || ap.AvailabilityID != 9 {
		t.Fatalf("unexpected reschedule result %+v", ap)
	}
	if !warranty.IsPaused(ap) {
		t.Fatal("reschedule must keep the pause")
	}
}

func TestResumeWarrantyIgnoresTerminal(t *testing.T) {
	ap := &models.Appointment{Status: string(StatusCompleted)}
	if ResumeWarranty(ap, t0) {
		t.Fatal("completed appointments must not be reopened")
	}
}
