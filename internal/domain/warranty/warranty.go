// Package warranty calcula a janela de garantia de um agendamento e
// representa o estado dela como uma união explícita.
package warranty

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

const Day = 24 * time.Hour

// ExpiryFrom returns base + days.
func ExpiryFrom(base time.Time, days int) time.Time {
	return base.Add(time.Duration(days) * Day)
}

// RemainingDays arredonda pra cima e nunca fica negativo.
func RemainingDays(expiresAt, now time.Time) int {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	days := left / Day
	if left%Day != 0 {
		days++
	}
	return int(days)
}

type Kind string

const (
	KindNotApplicable Kind = "not_applicable"
	KindActive        Kind = "active"
	KindPaused        Kind = "paused"
	KindExpired       Kind = "expired"
)

// State substitui os três campos anuláveis do agendamento.
// Só os campos do Kind corrente têm significado.
type State struct {
	Kind Kind

	// Active / Expired
	ExpiresAt time.Time
	// true quando ExpiresAt foi derivado de finished_at + warranty_days
	Derived bool

	// Paused
	RemainingDays int
	PausedAt      time.Time
}

func NotApplicable() State {
	return State{Kind: KindNotApplicable}
}

func Active(expiresAt time.Time) State {
	return State{Kind: KindActive, ExpiresAt: expiresAt}
}

func Expired(expiresAt time.Time) State {
	return State{Kind: KindExpired, ExpiresAt: expiresAt}
}

func Paused(remainingDays int, pausedAt time.Time) State {
	if remainingDays < 0 {
		remainingDays = 0
	}
	return State{Kind: KindPaused, RemainingDays: remainingDays, PausedAt: pausedAt}
}

// Of deriva o estado da garantia a partir do agendamento.
func Of(ap *models.Appointment, now time.Time) State {
	if ap.WarrantyPausedAt != nil && ap.WarrantyRemainingDays != nil {
		return Paused(*ap.WarrantyRemainingDays, *ap.WarrantyPausedAt)
	}

	if ap.WarrantyExpiresAt != nil {
		return fromExpiry(*ap.WarrantyExpiresAt, now, false)
	}

	if ap.FinishedAt != nil && ap.WarrantyDays > 0 {
		return fromExpiry(ExpiryFrom(*ap.FinishedAt, ap.WarrantyDays), now, true)
	}

	return NotApplicable()
}

func fromExpiry(expiresAt, now time.Time, derived bool) State {
	st := Active(expiresAt)
	if !expiresAt.After(now) {
		st = Expired(expiresAt)
	}
	st.Derived = derived
	return st
}

// Apply grava o estado nos campos do agendamento. É o único ponto que
// escreve os campos de pausa, então eles mudam sempre juntos.
func Apply(ap *models.Appointment, st State) {
	switch st.Kind {
	case KindPaused:
		pausedAt := st.PausedAt
		remaining := st.RemainingDays
		ap.WarrantyPausedAt = &pausedAt
		ap.WarrantyRemainingDays = &remaining

	case KindActive, KindExpired:
		expiresAt := st.ExpiresAt
		ap.WarrantyExpiresAt = &expiresAt
		ap.WarrantyPausedAt = nil
		ap.WarrantyRemainingDays = nil

	default:
		ap.WarrantyPausedAt = nil
		ap.WarrantyRemainingDays = nil
	}
}

// Pause congela o relógio: guarda os dias restantes (ceil, >= 0).
// warranty_expires_at fica como estava e é ignorado enquanto pausado.
func Pause(ap *models.Appointment, now time.Time) State {
	remaining := 0
	switch st := Of(ap, now); st.Kind {
	case KindActive, KindExpired:
		remaining = RemainingDays(st.ExpiresAt, now)
	case KindPaused:
		return st
	}

	st := Paused(remaining, now)
	Apply(ap, st)
	return st
}

// Resume reinicia a contagem a partir de base com os dias guardados.
// Retorna false quando não havia pausa.
func Resume(ap *models.Appointment, base time.Time) (State, bool) {
	if ap.WarrantyPausedAt == nil || ap.WarrantyRemainingDays == nil {
		return State{}, false
	}

	st := Active(ExpiryFrom(base, *ap.WarrantyRemainingDays))
	Apply(ap, st)
	return st, true
}

// ForceExpire encerra a garantia em now e limpa qualquer pausa.
func ForceExpire(ap *models.Appointment, now time.Time) {
	Apply(ap, Expired(now))
}

// IsPaused reports whether the pause pair is set.
func IsPaused(ap *models.Appointment) bool {
	return ap.WarrantyPausedAt != nil && ap.WarrantyRemainingDays != nil
}
