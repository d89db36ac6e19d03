// Package testutil traz um store em memória que implementa os repositórios
// de domínio, para testar use cases e handlers sem Postgres.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	appointmentDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	backjobDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	conversationDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type memTxKey struct{}

type memData struct {
	services      map[uint]models.Service
	availability  map[uint]models.Availability
	appointments  map[uint]models.Appointment
	backjobs      map[uint]models.BackjobApplication
	conversations map[uint]models.Conversation
	messages      map[uint]models.Message
	events        []events.Event
	nextID        uint
}

func (d memData) clone() memData {
	c := memData{
		services:      make(map[uint]models.Service, len(d.services)),
		availability:  make(map[uint]models.Availability, len(d.availability)),
		appointments:  make(map[uint]models.Appointment, len(d.appointments)),
		backjobs:      make(map[uint]models.BackjobApplication, len(d.backjobs)),
		conversations: make(map[uint]models.Conversation, len(d.conversations)),
		messages:      make(map[uint]models.Message, len(d.messages)),
		events:        append([]events.Event(nil), d.events...),
		nextID:        d.nextID,
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.availability {
		c.availability[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	for k, v := range d.backjobs {
		c.backjobs[k] = v
	}
	for k, v := range d.conversations {
		c.conversations[k] = v
	}
	for k, v := range d.messages {
		c.messages[k] = v
	}
	return c
}

// MemStore implementa appointment.Repository, backjob.Repository,
// conversation.Repository e events.Outbox.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memData

	// Writes conta escritas em appointments/backjobs/conversations.
	Writes int

	// FailAppend força erro no outbox (testa rollback).
	FailAppend error
}

func NewMemStore() *MemStore {
	return &MemStore{data: memData{
		services:      map[uint]models.Service{},
		availability:  map[uint]models.Availability{},
		appointments:  map[uint]models.Appointment{},
		backjobs:      map[uint]models.BackjobApplication{},
		conversations: map[uint]models.Conversation{},
		messages:      map[uint]models.Message{},
	}}
}

func (s *MemStore) id() uint {
	s.data.nextID++
	return s.data.nextID
}

// Transaction faz snapshot e restaura se fn falhar.
func (s *MemStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	writes := s.Writes
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.Writes = writes
		s.mu.Unlock()
		return err
	}
	return nil
}

// ======================================================
// SEED / INSPECT
// ======================================================

func (s *MemStore) AddService(svc models.Service) models.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == 0 {
		svc.ID = s.id()
	}
	s.data.services[svc.ID] = svc
	return svc
}

func (s *MemStore) AddAvailability(av models.Availability) models.Availability {
	s.mu.Lock()
	defer s.mu.Unlock()
	if av.ID == 0 {
		av.ID = s.id()
	}
	s.data.availability[av.ID] = av
	return av
}

func (s *MemStore) AddAppointment(ap models.Appointment) models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ap.ID == 0 {
		ap.ID = s.id()
	}
	if ap.CreatedAt.IsZero() {
		ap.CreatedAt = time.Now()
	}
	s.data.appointments[ap.ID] = ap
	return ap
}

func (s *MemStore) AddBackjob(bj models.BackjobApplication) models.BackjobApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bj.ID == 0 {
		bj.ID = s.id()
	}
	s.data.backjobs[bj.ID] = bj
	return bj
}

func (s *MemStore) AddConversation(conv models.Conversation) models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.ID == 0 {
		conv.ID = s.id()
	}
	s.data.conversations[conv.ID] = conv
	return conv
}

func (s *MemStore) Appointment(id uint) models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.appointments[id]
}

func (s *MemStore) Backjob(id uint) models.BackjobApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.backjobs[id]
}

func (s *MemStore) Availability(id uint) models.Availability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.availability[id]
}

func (s *MemStore) ConversationByPair(customerID, providerID uint) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.data.conversations {
		if c.CustomerID == customerID && c.ProviderID == providerID {
			return c, true
		}
	}
	return models.Conversation{}, false
}

func (s *MemStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0, len(s.data.messages))
	for _, m := range s.data.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EventNames lista os eventos gravados no outbox, em ordem.
func (s *MemStore) EventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data.events))
	for _, ev := range s.data.events {
		out = append(out, ev.EventName())
	}
	return out
}

// ======================================================
// CATALOG
// ======================================================

func (s *MemStore) GetService(_ context.Context, id uint) (*models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.data.services[id]
	if !ok {
		return nil, httperr.ErrNotFound("service_not_found")
	}
	return &svc, nil
}

func (s *MemStore) GetAvailability(_ context.Context, id uint) (*models.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	av, ok := s.data.availability[id]
	if !ok {
		return nil, httperr.ErrNotFound("availability_not_found")
	}
	return &av, nil
}

func (s *MemStore) SetAvailabilityBooked(_ context.Context, id uint, booked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if av, ok := s.data.availability[id]; ok {
		av.IsBooked = booked
		s.data.availability[id] = av
	}
	return nil
}

// ======================================================
// APPOINTMENT
// ======================================================

func (s *MemStore) GetAppointment(_ context.Context, id uint) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap, ok := s.data.appointments[id]
	if !ok {
		return nil, httperr.ErrNotFound("appointment_not_found")
	}
	return &ap, nil
}

func (s *MemStore) GetAppointmentForUpdate(ctx context.Context, id uint) (*models.Appointment, error) {
	return s.GetAppointment(ctx, id)
}

func (s *MemStore) CreateAppointment(_ context.Context, ap *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap.ID = s.id()
	ap.CreatedAt = time.Now()
	ap.UpdatedAt = ap.CreatedAt
	s.data.appointments[ap.ID] = *ap
	s.Writes++
	return nil
}

func (s *MemStore) UpdateAppointment(_ context.Context, ap *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap.UpdatedAt = time.Now()
	s.data.appointments[ap.ID] = *ap
	s.Writes++
	return nil
}

func (s *MemStore) ListAppointments(_ context.Context, f appointmentDomain.ListFilter) ([]models.Appointment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Appointment
	for _, ap := range s.data.appointments {
		if f.CustomerID != 0 && ap.CustomerID != f.CustomerID {
			continue
		}
		if f.ProviderID != 0 && ap.ProviderID != f.ProviderID {
			continue
		}
		if f.Status != "" && ap.Status != f.Status {
			continue
		}
		out = append(out, ap)
	}
	sortAppointments(out)
	return out, int64(len(out)), nil
}

func (s *MemStore) FindScheduleConflict(
	_ context.Context,
	providerID uint,
	availabilityID uint,
	date time.Time,
	excludeID uint,
) (*models.Appointment, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ap := range sortedAppointments(s.data.appointments) {
		if ap.ProviderID != providerID || ap.ID == excludeID {
			continue
		}
		if appointmentDomain.Status(ap.Status).IsTerminal() {
			continue
		}
		if (availabilityID != 0 && ap.AvailabilityID == availabilityID) || ap.ScheduledDate.Equal(date) {
			found := ap
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListExpiredWarranties(_ context.Context, now time.Time, afterID uint, limit int) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Appointment
	for _, ap := range sortedAppointmentsByID(s.data.appointments) {
		if ap.ID <= afterID {
			continue
		}
		st := appointmentDomain.Status(ap.Status)
		if st != appointmentDomain.StatusInWarranty && st != appointmentDomain.StatusBackjob {
			continue
		}
		if ap.WarrantyExpiresAt == nil || !ap.WarrantyExpiresAt.Before(now) {
			continue
		}
		if ap.WarrantyPausedAt != nil && ap.WarrantyRemainingDays != nil {
			continue
		}
		out = append(out, ap)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) CompleteApprovedBackjobs(_ context.Context, appointmentID uint, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, bj := range s.data.backjobs {
		if bj.AppointmentID == appointmentID && bj.Status == string(backjobDomain.StatusApproved) {
			bj.Status = string(backjobDomain.StatusCompleted)
			resolved := now
			bj.ResolvedAt = &resolved
			s.data.backjobs[id] = bj
			n++
		}
	}
	s.Writes += int(n)
	return n, nil
}

func (s *MemStore) CancelOpenBackjobs(_ context.Context, appointmentID uint, note string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, bj := range s.data.backjobs {
		if bj.AppointmentID != appointmentID {
			continue
		}
		st := backjobDomain.Status(bj.Status)
		if st != backjobDomain.StatusApproved && st != backjobDomain.StatusPending {
			continue
		}
		bj.Status = string(backjobDomain.StatusCancelledByAdmin)
		bj.AdminNotes = note
		resolved := now
		bj.ResolvedAt = &resolved
		s.data.backjobs[id] = bj
		n++
	}
	s.Writes += int(n)
	return n, nil
}

// ======================================================
// BACKJOB
// ======================================================

func (s *MemStore) GetBackjob(_ context.Context, id uint) (*models.BackjobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bj, ok := s.data.backjobs[id]
	if !ok {
		return nil, httperr.ErrNotFound("backjob_not_found")
	}
	return &bj, nil
}

func (s *MemStore) GetBackjobForUpdate(ctx context.Context, id uint) (*models.BackjobApplication, error) {
	return s.GetBackjob(ctx, id)
}

func (s *MemStore) FindApprovedBackjob(_ context.Context, appointmentID uint) (*models.BackjobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvedFor(appointmentID, 0), nil
}

func (s *MemStore) approvedFor(appointmentID, exceptID uint) *models.BackjobApplication {
	for _, bj := range s.data.backjobs {
		if bj.AppointmentID == appointmentID && bj.ID != exceptID &&
			bj.Status == string(backjobDomain.StatusApproved) {
			found := bj
			return &found
		}
	}
	return nil
}

// CreateBackjob simula o índice parcial único de approved.
func (s *MemStore) CreateBackjob(_ context.Context, bj *models.BackjobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bj.Status == string(backjobDomain.StatusApproved) && s.approvedFor(bj.AppointmentID, 0) != nil {
		return httperr.ErrConflict("backjob_already_active", map[string]any{"appointment_id": bj.AppointmentID})
	}

	bj.ID = s.id()
	bj.CreatedAt = time.Now()
	s.data.backjobs[bj.ID] = *bj
	s.Writes++
	return nil
}

func (s *MemStore) UpdateBackjob(_ context.Context, bj *models.BackjobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bj.Status == string(backjobDomain.StatusApproved) && s.approvedFor(bj.AppointmentID, bj.ID) != nil {
		return httperr.ErrConflict("backjob_already_active", map[string]any{"appointment_id": bj.AppointmentID})
	}

	s.data.backjobs[bj.ID] = *bj
	s.Writes++
	return nil
}

func (s *MemStore) ListBackjobs(_ context.Context, f backjobDomain.ListFilter) ([]models.BackjobApplication, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BackjobApplication
	for _, bj := range s.data.backjobs {
		if f.Status != "" && bj.Status != f.Status {
			continue
		}
		if f.AppointmentID != 0 && bj.AppointmentID != f.AppointmentID {
			continue
		}
		out = append(out, bj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

// ======================================================
// CONVERSATION
// ======================================================

func (s *MemStore) FindConversationByPair(_ context.Context, customerID, providerID uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.data.conversations {
		if c.CustomerID == customerID && c.ProviderID == providerID {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetConversation(_ context.Context, id uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.conversations[id]
	if !ok {
		return nil, httperr.ErrNotFound("conversation_not_found")
	}
	return &c, nil
}

func (s *MemStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.data.conversations {
		if c.CustomerID == conv.CustomerID && c.ProviderID == conv.ProviderID {
			*conv = c
			return nil
		}
	}

	conv.ID = s.id()
	conv.CreatedAt = time.Now()
	s.data.conversations[conv.ID] = *conv
	s.Writes++
	return nil
}

func (s *MemStore) UpdateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.conversations[conv.ID] = *conv
	s.Writes++
	return nil
}

func (s *MemStore) ListConversationsAfter(_ context.Context, afterID uint, limit int) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Conversation
	for _, c := range s.data.conversations {
		if c.ID > afterID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListConversationsForUser(_ context.Context, userID uint) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Conversation
	for _, c := range s.data.conversations {
		if c.CustomerID == userID || c.ProviderID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) ListPairAppointments(_ context.Context, customerID, providerID uint) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Appointment
	for _, ap := range s.data.appointments {
		if ap.CustomerID != customerID || ap.ProviderID != providerID {
			continue
		}
		if ap.Status == string(appointmentDomain.StatusCancelled) {
			continue
		}
		out = append(out, ap)
	}
	sortAppointments(out)
	return out, nil
}

func (s *MemStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.id()
	msg.CreatedAt = time.Now()
	s.data.messages[msg.ID] = *msg
	return nil
}

func (s *MemStore) ListMessages(_ context.Context, conversationID, beforeID uint, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for _, m := range s.data.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if beforeID != 0 && m.ID >= beforeID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ======================================================
// OUTBOX
// ======================================================

func (s *MemStore) AppendEvents(_ context.Context, evs ...events.Event) error {
	if s.FailAppend != nil {
		return s.FailAppend
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events = append(s.data.events, evs...)
	return nil
}

// ======================================================
// HELPERS
// ======================================================

// mais recentes primeiro (scheduled_date DESC, id DESC)
func sortAppointments(items []models.Appointment) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledDate.Equal(items[j].ScheduledDate) {
			return items[i].ScheduledDate.After(items[j].ScheduledDate)
		}
		return items[i].ID > items[j].ID
	})
}

func sortedAppointments(m map[uint]models.Appointment) []models.Appointment {
	out := make([]models.Appointment, 0, len(m))
	for _, ap := range m {
		out = append(out, ap)
	}
	sortAppointments(out)
	return out
}

func sortedAppointmentsByID(m map[uint]models.Appointment) []models.Appointment {
	out := make([]models.Appointment, 0, len(m))
	for _, ap := range m {
		out = append(out, ap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	_ appointmentDomain.Repository  = (*MemStore)(nil)
	_ backjobDomain.Repository      = (*MemStore)(nil)
	_ conversationDomain.Repository = (*MemStore)(nil)
	_ events.Outbox                 = (*MemStore)(nil)
)
