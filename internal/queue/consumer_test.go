package queue

import (
    "context"
    "errors"
    "testing"

    "github.com/iliyamo/hostel-management/internal/model"
)

type memStore struct {
    got    []model.Notification
    ids    []string
    failed error
}

func (m *memStore) Insert(_ context.Context, n model.Notification, eventID string) error {
    if m.failed != nil {
        return m.failed
    }
    m.got = append(m.got, n)
    m.ids = append(m.ids, eventID)
    return nil
}

func TestHandleMessageStoresNotification(t *testing.T) {
    st := &memStore{}
    body := []byte(`{"event_id":"e-1","user_id":7,"recipient_type":"Student","alert_type":"Allocation","title":"Room allocated","message":"Room 101"}`)
    if err := handleMessage(context.Background(), st, body); err != nil {
        t.Fatalf("handleMessage: %v", err)
    }
    if len(st.got) != 1 {
        t.Fatalf("expected 1 notification, got %d", len(st.got))
    }
    n := st.got[0]
    if n.UserID == nil || *n.UserID != 7 || n.RecipientType != model.RecipientStudent || n.Title != "Room allocated" {
        t.Fatalf("unexpected notification %+v", n)
    }
    if st.ids[0] != "e-1" {
        t.Fatalf("expected event id e-1, got %q", st.ids[0])
    }
}

func TestHandleMessageDefaultsAlertType(t *testing.T) {
    st := &memStore{}
    body := []byte(`{"event_id":"e-2","recipient_type":"Admin","title":"Hello"}`)
    if err := handleMessage(context.Background(), st, body); err != nil {
        t.Fatalf("handleMessage: %v", err)
    }
    if st.got[0].AlertType != "General" {
        t.Fatalf("expected General, got %q", st.got[0].AlertType)
    }
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
    cases := map[string]string{
        "not json":       `{`,
        "bad recipient":  `{"recipient_type":"Warden","title":"x"}`,
        "missing title":  `{"recipient_type":"All","title":"  "}`,
    }
    for name, body := range cases {
        st := &memStore{}
        if err := handleMessage(context.Background(), st, []byte(body)); err == nil {
            t.Fatalf("%s: expected error", name)
        }
        if len(st.got) != 0 {
            t.Fatalf("%s: nothing should be stored", name)
        }
    }
}

func TestHandleMessagePropagatesStoreError(t *testing.T) {
    st := &memStore{failed: errors.New("db down")}
    err := handleMessage(context.Background(), st, []byte(`{"recipient_type":"All","title":"x"}`))
    if err == nil {
        t.Fatalf("expected error")
    }
}
