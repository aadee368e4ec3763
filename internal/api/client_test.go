package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), func() string { return "tok-123" })
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"_id":"u1","name":"Ada","lastActive":"2024-05-01T10:00:00.000Z"}`)
	})

	id, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if id.ID != "u1" || id.DisplayName != "Ada" || id.LastActiveAt.IsZero() {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestClientAnonymousWhenNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		io.WriteString(w, `{"token":"jwt","user":{"_id":"u1","name":"Ada"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	tok, id, err := c.Login(context.Background(), Credential{Email: "a@b.c", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if tok != "jwt" || id.ID != "u1" {
		t.Fatalf("Login() = %q, %+v", tok, id)
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		target  error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Token invalid"}`, ErrUnauthorized, "Token invalid"},
		{"forbidden", http.StatusForbidden, `{"error":"nope"}`, ErrUnauthorized, "nope"},
		{"not found", http.StatusNotFound, `{"message":"User not found"}`, ErrNotFound, "User not found"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, nil, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.GetUser(context.Background(), "u9")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("errors.Is(%v, %v) = false", err, tt.target)
			}
			if got := UserMessage(err); got != tt.message {
				t.Fatalf("UserMessage() = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestClientRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `oops`},
		{"message without id", `[{"sender":"a","receiver":"b","content":"x","createdAt":"2024-05-01T10:00:00Z"}]`},
		{"message without timestamp", `[{"_id":"m1","sender":"a","receiver":"b","content":"x"}]`},
		{"message without sender", `[{"_id":"m1","receiver":"b","content":"x","createdAt":"2024-05-01T10:00:00Z"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			_, err := c.History(context.Background(), "b")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("History() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestHistoryDecodesPopulatedSender(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/peer-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `[
			{"_id":"m1","sender":{"_id":"me","name":"Me"},"receiver":"peer-1","content":"hi","createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T10:00:00Z"},
			{"_id":"m2","sender":{"_id":"peer-1"},"receiver":{"_id":"me"},"content":"yo","attachments":[{"url":"https://cdn/x.png"}],"createdAt":"2024-05-01T10:01:00Z","updatedAt":"2024-05-01T10:05:00Z"}
		]`)
	})

	msgs, err := c.History(context.Background(), "peer-1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].SenderID != "me" || msgs[0].PeerID("me") != "peer-1" || msgs[0].Edited() {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].AttachmentRef != "https://cdn/x.png" || msgs[1].PeerID("me") != "peer-1" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
	if !msgs[1].Edited() {
		t.Fatal("second message should be reported as edited")
	}
}

func TestListConversationsCollapsesDuplicatePeers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"_id":"b","name":"Bea"},{"_id":"a","name":"Al"},{"_id":"b","name":"Bea again"}]`)
	})
	convs, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations() error: %v", err)
	}
	if len(convs) != 2 || convs[0].PeerID != "b" || convs[0].PeerDisplayName != "Bea" || convs[1].PeerID != "a" {
		t.Fatalf("unexpected conversations: %+v", convs)
	}
}

func TestSendMessageJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["receiverId"] != "b" || in["content"] != "hello" {
			t.Errorf("payload = %v", in)
		}
		io.WriteString(w, `{"_id":"m9","sender":"a","receiver":"b","content":"hello","createdAt":"2024-05-01T10:00:00Z"}`)
	})
	m, err := c.SendMessage(context.Background(), "b", "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if m.ID != "m9" || m.Content != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestSendMessageMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("receiverId") != "b" || r.FormValue("content") != "look" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("attachments")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "note.txt" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		if !strings.HasPrefix(hdr.Header.Get("Content-Type"), "text/plain") {
			t.Errorf("part Content-Type = %q", hdr.Header.Get("Content-Type"))
		}
		io.WriteString(w, `{"_id":"m10","sender":"a","receiver":"b","content":"look","attachments":["https://cdn/note.txt"],"createdAt":"2024-05-01T10:00:00Z"}`)
	})
	att := &Attachment{Filename: "note.txt", Content: []byte("plain text body")}
	m, err := c.SendMessage(context.Background(), "b", "look", att)
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if m.AttachmentRef != "https://cdn/note.txt" {
		t.Fatalf("AttachmentRef = %q", m.AttachmentRef)
	}
}

func TestEditMessageAcceptsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/messages/m1" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"message":"updated","data":{"_id":"m1","sender":"a","receiver":"b","content":"fixed","createdAt":"2024-05-01T10:00:00Z","editedAt":"2024-05-01T11:00:00Z"}}`)
	})
	m, err := c.EditMessage(context.Background(), "m1", "  fixed  ")
	if err != nil {
		t.Fatalf("EditMessage() error: %v", err)
	}
	if m.Content != "fixed" || !m.Edited() {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestDeleteMessage(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = r.Method == http.MethodDelete && r.URL.Path == "/messages/m1"
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}
	if !called {
		t.Fatal("DELETE /messages/m1 was not called")
	}
}

func TestMessageRoundTripThroughBroadcastShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"_id":"m1","sender":{"_id":"a"},"receiver":"b","content":"hello","createdAt":"2024-05-01T10:00:00Z"}`)
	})
	sent, err := c.SendMessage(context.Background(), "b", "hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := EncodeMessage(*sent)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage() error: %v", err)
	}
	if got.ID != sent.ID || got.SenderID != "a" || got.ReceiverID != "b" || !got.CreatedAt.Equal(sent.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, sent)
	}
}

func TestIdentityFollowers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"_id":"u2","username":"bee","followers":["u1",{"_id":"u3"}],"following":[]}`)
	})
	id, err := c.GetUser(context.Background(), "u2")
	if err != nil {
		t.Fatal(err)
	}
	if id.DisplayName != "bee" || !id.IsFollowedBy("u1") || !id.IsFollowedBy("u3") || id.IsFollowedBy("u2") {
		t.Fatalf("unexpected identity: %+v", id)
	}
}
