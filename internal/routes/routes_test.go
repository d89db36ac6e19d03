package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/BruksfildServices01/service-marketplace/internal/audit"
	"github.com/BruksfildServices01/service-marketplace/internal/handlers"
	"github.com/BruksfildServices01/service-marketplace/internal/jobs"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/testutil"
	ucAppointment "github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
	ucBackjob "github.com/BruksfildServices01/service-marketplace/internal/usecase/backjob"
	ucConversation "github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/validators"
)

const secret = "routes-test"

const (
	customerID uint = 100
	providerID uint = 200
	outsiderID uint = 300
	adminID    uint = 1
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeMaintenance struct {
	err error
}

func (f *fakeMaintenance) RunReconcile(context.Context) (ucConversation.ReconcileResult, error) {
	return ucConversation.ReconcileResult{Scanned: 4}, f.err
}

func (f *fakeMaintenance) RunSweep(context.Context) (ucAppointment.SweepResult, error) {
	return ucAppointment.SweepResult{Completed: 1}, f.err
}

type fakeAuditReader struct {
	got audit.Filter
}

func (f *fakeAuditReader) List(_ context.Context, flt audit.Filter) ([]models.AuditLog, int64, error) {
	f.got = flt
	return []models.AuditLog{{ID: 9, Action: "backjob_applied"}}, 1, nil
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	store  *testutil.MemStore
	jobs   *fakeMaintenance
	audits *fakeAuditReader
	now    time.Time
}

type fakeUploader struct {
	uploads   int
	discarded []string
}

func (f *fakeUploader) UploadFiles(_ context.Context, appointmentID uint, files []*multipart.FileHeader) ([]string, error) {
	f.uploads++
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		urls = append(urls, "https://cdn.test/backjobs/"+itoa(appointmentID)+"/"+fh.Filename)
	}
	return urls, nil
}

func (f *fakeUploader) Discard(_ context.Context, urls []string) error {
	f.discarded = append(f.discarded, urls...)
	return nil
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithUploader(t, nil)
}

func newServerWithUploader(t *testing.T, uploader handlers.EvidenceUploader) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validators.Register(); err != nil {
		t.Fatalf("validators: %v", err)
	}

	s := &server{
		t:      t,
		store:  testutil.NewMemStore(),
		jobs:   &fakeMaintenance{},
		audits: &fakeAuditReader{},
		now:    t0,
	}
	clock := func() time.Time { return s.now }

	lifecycle := ucConversation.NewLifecycle(s.store, s.store, clock, nil)

	apDeps := ucAppointment.Deps{Repo: s.store, Outbox: s.store, Hook: lifecycle, Clock: clock}
	bjDeps := ucBackjob.Deps{Repo: s.store, Outbox: s.store, Hook: lifecycle, Clock: clock}
	messages := ucConversation.NewMessages(lifecycle)

	h := Handlers{
		Appointment: handlers.NewAppointmentHandler(handlers.AppointmentUseCases{
			Create:       ucAppointment.NewCreateAppointment(apDeps),
			List:         ucAppointment.NewListAppointments(s.store),
			Get:          ucAppointment.NewGetAppointment(s.store),
			UpdateStatus: ucAppointment.NewUpdateAppointmentStatus(apDeps),
			Cancel:       ucAppointment.NewCancelAppointment(apDeps),
			Complete:     ucAppointment.NewCustomerCompleteAppointment(apDeps),
			Reschedule:   ucAppointment.NewRescheduleFromBackjob(apDeps, s.store),
		}, clock, nil),
		Backjob: handlers.NewBackjobHandler(handlers.BackjobUseCases{
			Apply:   ucBackjob.NewApplyBackjob(bjDeps),
			Get:     ucBackjob.NewGetBackjob(s.store),
			Dispute: ucBackjob.NewDisputeBackjob(bjDeps),
			Cancel:  ucBackjob.NewCancelBackjobByCustomer(bjDeps),
		}, uploader, nil),
		AdminBackjob: handlers.NewAdminBackjobHandler(handlers.AdminBackjobUseCases{
			List:    ucBackjob.NewListBackjobs(s.store),
			Update:  ucBackjob.NewAdminUpdateBackjob(bjDeps),
			Approve: ucBackjob.NewAdminApproveDispute(bjDeps),
			Reject:  ucBackjob.NewAdminRejectDispute(bjDeps),
		}, nil),
		AdminJobs:    handlers.NewAdminJobsHandler(s.jobs, nil),
		AuditLogs:    handlers.NewAuditLogsHandler(s.audits, nil),
		Conversation: handlers.NewConversationHandler(messages, nil, nil),
		Health:       handlers.NewHealthHandler(nil),
	}

	s.engine = gin.New()
	RegisterRoutes(s.engine, h, secret, nil)
	return s
}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (s *server) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

type appointmentBody struct {
	ID       uint   `json:"id"`
	Status   string `json:"status"`
	Warranty struct {
		State         string     `json:"state"`
		ExpiresAt     *time.Time `json:"expires_at"`
		RemainingDays *int       `json:"remaining_days"`
	} `json:"warranty"`
}

type errorBody struct {
	Code    string         `json:"error_code"`
	Details map[string]any `json:"details"`
}

// book cria o agendamento via API e leva até in-warranty.
func (s *server) bookInWarranty(warrantyDays int) appointmentBody {
	s.t.Helper()
	svc := s.store.AddService(models.Service{ProviderID: providerID, Name: "Elétrica", WarrantyDays: warrantyDays})
	av := s.store.AddAvailability(models.Availability{
		ProviderID: providerID,
		Date:       t0.Add(24 * time.Hour),
		StartTime:  "10:00",
		EndTime:    "11:00",
	})

	w := s.do(http.MethodPost, "/appointments", token(s.t, customerID, "customer"), map[string]any{
		"service_id":      svc.ID,
		"availability_id": av.ID,
		"scheduled_date":  t0.Add(25 * time.Hour).Format(time.RFC3339),
	})
	expect(s.t, w, http.StatusCreated)
	ap := decode[appointmentBody](s.t, w)

	prov := token(s.t, providerID, "provider")
	for _, st := range []string{"finished", "in-warranty"} {
		expect(s.t, s.do(http.MethodPatch, "/appointments/"+itoa(ap.ID)+"/status", prov, map[string]string{"status": st}), http.StatusOK)
	}
	return ap
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

// ======================================================
// TESTS
// ======================================================

func TestHealthIsPublic(t *testing.T) {
	s := newServer(t)
	expect(t, s.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, "/appointments", "", nil), http.StatusUnauthorized)
}

func TestCreateAppointmentRoles(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/appointments", token(t, providerID, "provider"), map[string]any{
		"service_id": 1, "availability_id": 1,
	})
	expect(t, w, http.StatusForbidden)

	w = s.do(http.MethodPost, "/appointments", token(t, customerID, "customer"), map[string]any{})
	expect(t, w, http.StatusBadRequest)
	if body := decode[errorBody](t, w); body.Code != "service_id_required" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestWarrantyClaimFlow(t *testing.T) {
	s := newServer(t)
	ap := s.bookInWarranty(7)
	cust := token(t, customerID, "customer")

	w := s.do(http.MethodGet, "/appointments/"+itoa(ap.ID), cust, nil)
	expect(t, w, http.StatusOK)
	got := decode[appointmentBody](t, w)
	if got.Status != "in-warranty" || got.Warranty.State != "active" || got.Warranty.ExpiresAt == nil {
		t.Fatalf("unexpected appointment %+v", got)
	}
	if !got.Warranty.ExpiresAt.Equal(t0.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", got.Warranty.ExpiresAt)
	}

	// dois dias depois o cliente abre o pedido
	s.now = t0.Add(48 * time.Hour)
	w = s.do(http.MethodPost, "/appointments/"+itoa(ap.ID)+"/backjobs", cust, map[string]any{
		"reason":      "tomada voltou a falhar",
		"description": "sem energia na sala",
	})
	expect(t, w, http.StatusCreated)
	bj := decode[struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}](t, w)
	if bj.Status != "approved" {
		t.Fatalf("unexpected backjob status %q", bj.Status)
	}

	got = decode[appointmentBody](t, s.do(http.MethodGet, "/appointments/"+itoa(ap.ID), cust, nil))
	if got.Status != "backjob" || got.Warranty.State != "paused" || got.Warranty.RemainingDays == nil || *got.Warranty.RemainingDays != 5 {
		t.Fatalf("expected paused warranty with 5 days, got %+v", got)
	}

	// segundo pedido no mesmo agendamento
	w = s.do(http.MethodPost, "/appointments/"+itoa(ap.ID)+"/backjobs", cust, map[string]any{
		"reason": "de novo", "description": "x",
	})
	if w.Code < 400 {
		t.Fatalf("second claim must fail, got %d", w.Code)
	}

	// prestador de fora não vê o pedido
	w = s.do(http.MethodGet, "/backjobs/"+itoa(bj.ID), token(t, outsiderID, "provider"), nil)
	expect(t, w, http.StatusForbidden)

	// admin lista
	w = s.do(http.MethodGet, "/admin/backjobs?status=approved", token(t, adminID, "admin"), nil)
	expect(t, w, http.StatusOK)
	list := decode[struct {
		Total int64 `json:"total"`
	}](t, w)
	if list.Total != 1 {
		t.Fatalf("expected 1 backjob, got %d", list.Total)
	}
}

func TestApplyBackjobValidation(t *testing.T) {
	s := newServer(t)
	ap := s.bookInWarranty(7)

	w := s.do(http.MethodPost, "/appointments/"+itoa(ap.ID)+"/backjobs", token(t, customerID, "customer"), map[string]any{
		"reason": "vazou",
	})
	expect(t, w, http.StatusBadRequest)
	if body := decode[errorBody](t, w); body.Code != "evidence_required" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func (s *server) postClaimMultipart(appointmentID uint, tok string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("reason", "infiltração")
	fw, _ := mw.CreateFormFile("files", "foto.png")
	_, _ = fw.Write([]byte("not really a png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+itoa(appointmentID)+"/backjobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestApplyBackjobMultipartWithoutUploader(t *testing.T) {
	s := newServer(t)
	ap := s.bookInWarranty(7)

	w := s.postClaimMultipart(ap.ID, token(t, customerID, "customer"))

	expect(t, w, http.StatusUnprocessableEntity)
	if body := decode[errorBody](t, w); body.Code != "uploads_disabled" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestApplyBackjobMultipartAuthorizesBeforeUpload(t *testing.T) {
	up := &fakeUploader{}
	s := newServerWithUploader(t, up)
	ap := s.bookInWarranty(7)

	other := token(t, outsiderID, "customer")
	expect(t, s.postClaimMultipart(ap.ID, other), http.StatusForbidden)
	if up.uploads != 0 {
		t.Fatalf("no upload expected for a foreign appointment, got %d", up.uploads)
	}

	w := s.postClaimMultipart(ap.ID, token(t, customerID, "customer"))
	expect(t, w, http.StatusCreated)
	if up.uploads != 1 || len(up.discarded) != 0 {
		t.Fatalf("unexpected uploader calls %+v", up)
	}

	// agendamento já em backjob: recusa antes de subir
	expect(t, s.postClaimMultipart(ap.ID, token(t, customerID, "customer")), http.StatusConflict)
	if up.uploads != 1 {
		t.Fatalf("rejected claim should not upload, got %d", up.uploads)
	}
}

func TestApplyBackjobDiscardsEvidenceWhenClaimFails(t *testing.T) {
	up := &fakeUploader{}
	s := newServerWithUploader(t, up)
	ap := s.bookInWarranty(7)

	s.store.FailAppend = context.DeadlineExceeded
	w := s.postClaimMultipart(ap.ID, token(t, customerID, "customer"))
	if w.Code < 500 {
		t.Fatalf("expected server error, got %d", w.Code)
	}
	if up.uploads != 1 || len(up.discarded) != 1 {
		t.Fatalf("uploaded evidence should be discarded, got %+v", up)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	s := newServer(t)
	ap := s.bookInWarranty(0)

	w := s.do(http.MethodPatch, "/appointments/"+itoa(ap.ID)+"/status", token(t, providerID, "provider"), map[string]string{
		"status": "done",
	})
	expect(t, w, http.StatusBadRequest)
	if body := decode[errorBody](t, w); body.Code != "invalid_status" {
		t.Fatalf("unexpected error code %q", body.Code)
	}

	// cliente não muda status
	w = s.do(http.MethodPatch, "/appointments/"+itoa(ap.ID)+"/status", token(t, customerID, "customer"), map[string]string{
		"status": "completed",
	})
	expect(t, w, http.StatusForbidden)
}

func TestCancelRequiresReason(t *testing.T) {
	s := newServer(t)
	ap := s.bookInWarranty(0)

	w := s.do(http.MethodPost, "/appointments/"+itoa(ap.ID)+"/cancel", token(t, customerID, "customer"), map[string]string{
		"reason": "  ",
	})
	expect(t, w, http.StatusBadRequest)
	if body := decode[errorBody](t, w); body.Code != "reason_required" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestConversationRoutes(t *testing.T) {
	s := newServer(t)
	s.bookInWarranty(7)
	cust := token(t, customerID, "customer")

	w := s.do(http.MethodGet, "/conversations", cust, nil)
	expect(t, w, http.StatusOK)
	convs := decode[struct {
		Data []struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}](t, w)
	if len(convs.Data) != 1 || convs.Data[0].Status != "active" {
		t.Fatalf("unexpected conversations %+v", convs)
	}
	path := "/conversations/" + itoa(convs.Data[0].ID)

	expect(t, s.do(http.MethodPost, path+"/messages", cust, map[string]string{"body": "olá"}), http.StatusCreated)
	expect(t, s.do(http.MethodPost, path+"/messages", token(t, outsiderID, "customer"), map[string]string{"body": "oi"}), http.StatusForbidden)

	w = s.do(http.MethodGet, path+"/messages", token(t, providerID, "provider"), nil)
	expect(t, w, http.StatusOK)
	if msgs := decode[struct {
		Total int `json:"total"`
	}](t, w); msgs.Total != 1 {
		t.Fatalf("expected 1 message, got %d", msgs.Total)
	}

	w = s.do(http.MethodGet, path+"/status", cust, nil)
	expect(t, w, http.StatusOK)
	if st := decode[struct {
		CanMessage bool `json:"can_message"`
	}](t, w); !st.CanMessage {
		t.Fatal("pair with an in-warranty appointment can message")
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	adm := token(t, adminID, "admin")

	expect(t, s.do(http.MethodPost, "/admin/jobs/sweep", token(t, customerID, "customer"), nil), http.StatusForbidden)
	expect(t, s.do(http.MethodPost, "/admin/jobs/sweep", adm, nil), http.StatusOK)

	s.jobs.err = jobs.ErrLocked
	w := s.do(http.MethodPost, "/admin/jobs/reconcile", adm, nil)
	expect(t, w, http.StatusConflict)
	if body := decode[errorBody](t, w); body.Code != "job_running" {
		t.Fatalf("unexpected error code %q", body.Code)
	}

	w = s.do(http.MethodGet, "/admin/audit-logs?action=backjob_applied&from=2025-03-01&to=2025-03-10&page=2&limit=10", adm, nil)
	expect(t, w, http.StatusOK)
	f := s.audits.got
	if f.Action != "backjob_applied" || f.Limit != 10 || f.Offset != 10 || f.From == nil || f.To == nil {
		t.Fatalf("unexpected filter %+v", f)
	}
	if f.To.Day() != 11 {
		t.Fatalf("to must include the whole day, got %v", f.To)
	}

	expect(t, s.do(http.MethodPatch, "/admin/backjobs/1", adm, map[string]string{"action": "delete"}), http.StatusBadRequest)
}
