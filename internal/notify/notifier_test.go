package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type fakeUsers map[uint]models.User

func (f fakeUsers) FindUsers(_ context.Context, ids []uint) (map[uint]models.User, error) {
	out := map[uint]models.User{}
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type sentMail struct{ to, subject string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.sent = append(m.sent, sentMail{to, subject})
	return m.err
}

type fakePusher struct {
	tokens []string
}

func (p *fakePusher) Push(_ context.Context, token string, _ Notification) error {
	p.tokens = append(p.tokens, token)
	return nil
}

func envelope(t *testing.T, ev events.Event) events.Envelope {
	t.Helper()
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return events.Envelope{ID: "evt", Type: ev.EventName(), Payload: raw}
}

var users = fakeUsers{
	100: {ID: 100, Email: "customer@example.com", PushToken: "ExponentPushToken[customer]"},
	200: {ID: 200, Email: "provider@example.com"},
}

func TestBackjobAppliedNotifiesProvider(t *testing.T) {
	mailer := &fakeMailer{}
	pusher := &fakePusher{}
	n := NewNotifier(users, mailer, pusher, nil)

	err := n.Handle(context.Background(), envelope(t, events.BackjobAppliedEvent{
		BackjobParties: events.BackjobParties{BackjobID: 1, AppointmentID: 2, CustomerID: 100, ProviderID: 200},
		Reason:         "leak persists",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "provider@example.com" {
		t.Fatalf("expected one email to the provider, got %+v", mailer.sent)
	}
	if len(pusher.tokens) != 0 {
		t.Fatalf("provider has no push token, got %v", pusher.tokens)
	}
}

func TestCancelledSkipsTheActor(t *testing.T) {
	plan, err := planFor(envelope(t, events.AppointmentCancelledEvent{
		AppointmentParties: events.AppointmentParties{AppointmentID: 5, CustomerID: 100, ProviderID: 200},
		Reason:             "sick",
		CancelledBy:        "customer",
	}))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 1 || plan[0].UserID != 200 {
		t.Fatalf("only the provider should be told, got %+v", plan)
	}
}

func TestMessageSentPushesRecipient(t *testing.T) {
	pusher := &fakePusher{}
	n := NewNotifier(users, &fakeMailer{}, pusher, nil)

	err := n.Handle(context.Background(), envelope(t, events.MessageSentEvent{
		ConversationID: 9,
		SenderID:       200,
		RecipientID:    100,
		Body:           "chego em 10 minutos",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pusher.tokens) != 1 || pusher.tokens[0] != "ExponentPushToken[customer]" {
		t.Fatalf("expected push to customer, got %v", pusher.tokens)
	}
}

func TestMailerErrorIsReturned(t *testing.T) {
	n := NewNotifier(users, &fakeMailer{err: errors.New("smtp down")}, &fakePusher{}, nil)

	err := n.Handle(context.Background(), envelope(t, events.BackjobDisputedEvent{
		BackjobParties: events.BackjobParties{BackjobID: 1, CustomerID: 100, ProviderID: 200},
		Reason:         "not covered",
	}))
	if err == nil {
		t.Fatal("expected error so the relay retries")
	}
}

func TestIgnoredEvents(t *testing.T) {
	plan, err := planFor(envelope(t, events.ConversationStatusChangedEvent{ConversationID: 1}))
	if err != nil || plan != nil {
		t.Fatalf("conversation status changes are not notified, got %v %v", plan, err)
	}
}

func TestIsExpoToken(t *testing.T) {
	if !IsExpoToken("ExpoPushToken[abc]") || IsExpoToken("fcm:abc") {
		t.Fatal("unexpected token validation")
	}
}
