package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	return c, server
}

func TestSendSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["message"] != "Quels sont les frais de tenue de compte ?" {
			t.Errorf("unexpected message: %v", body["message"])
		}
		if body["user_id"] != "user_001" {
			t.Errorf("unexpected user id: %v", body["user_id"])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Les frais sont encadrés par...",
			"conversation_id": "conv-42",
			"timestamp":       "2026-03-14T09:26:53Z",
			"sources": []map[string]any{
				{"document_title": "Code monétaire", "document": "code__monetaire.pdf", "page_number": 7, "relevance": 0.91},
			},
		})
	})

	reply, err := c.Send(context.Background(), "Quels sont les frais de tenue de compte ?", "conv-42", "user_001")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if reply.Message != "Les frais sont encadrés par..." {
		t.Fatalf("unexpected reply: %q", reply.Message)
	}
	if reply.ConversationID != "conv-42" {
		t.Fatalf("unexpected conversation id: %q", reply.ConversationID)
	}
	if len(reply.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(reply.Sources))
	}

	source := reply.Sources[0]
	if source.Title != "Code monétaire" || source.DocumentName != "code_monetaire.pdf" {
		t.Fatalf("aliases not folded: %+v", source)
	}
	if source.Page != 7 || source.Score != 0.91 {
		t.Fatalf("page/score not folded: %+v", source)
	}
	if !strings.Contains(source.URL, "/api/v1/documents/code_monetaire.pdf#page=7") {
		t.Fatalf("document URL not derived: %q", source.URL)
	}
}

func TestSendBlankMessageNoNetworkCall(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Send(context.Background(), "   ", "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatal("blank input must not reach the network")
	}
}

func TestSendOversizedMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("oversized input must not reach the network")
	})

	_, err := c.Send(context.Background(), strings.Repeat("é", MaxMessageRunes+1), "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apiErr.Message != "Message trop long (maximum 5000 caractères)" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestSendClientErrorSurfacesDetail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Le message ne peut pas être vide"})
	})

	_, err := c.Send(context.Background(), "bonjour", "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindClient {
		t.Fatalf("expected client error, got %v", err)
	}
	if apiErr.Message != "Le message ne peut pas être vide" {
		t.Fatalf("detail not surfaced verbatim: %q", apiErr.Message)
	}
}

func TestSendClientErrorWithoutDetail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{}`))
	})

	_, err := c.Send(context.Background(), "bonjour", "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindClient {
		t.Fatalf("expected client error, got %v", err)
	}
	if apiErr.Message != "Requête invalide" {
		t.Fatalf("unexpected fallback: %q", apiErr.Message)
	}
}

func TestSendServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Send(context.Background(), "bonjour", "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindServer {
		t.Fatalf("expected server error, got %v", err)
	}
	if apiErr.Message != "Erreur du serveur. Veuillez réessayer." {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestSendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	server.Close()

	_, err := c.Send(context.Background(), "bonjour", "", "user_001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if apiErr.Message != "Impossible de se connecter au serveur" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestCheckHealth(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": "2026-03-14T09:26:53Z",
			"version":   "1.0.0",
		})
	})

	status, err := c.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth err: %v", err)
	}
	if !status.Healthy() {
		t.Fatalf("expected healthy, got %+v", status)
	}
	if status.Version != "1.0.0" {
		t.Fatalf("unexpected version: %q", status.Version)
	}
}

func TestCheckHealthDegraded(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded"})
	})

	status, err := c.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth err: %v", err)
	}
	if status.Healthy() {
		t.Fatal("degraded status must not report healthy")
	}
}

func TestTestConnection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/test" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]string{"test_status": "success"})
	})

	ok, err := c.TestConnection(context.Background(), "user_001")
	if err != nil {
		t.Fatalf("TestConnection err: %v", err)
	}
	if !ok {
		t.Fatal("expected success")
	}
}

func TestListDocuments(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/documents" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"available_documents": []string{"code_monetaire.pdf", "droit_bancaire.pdf"},
			"total_count":         2,
		})
	})

	list, err := c.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments err: %v", err)
	}
	if list.TotalCount != 2 || len(list.AvailableDocuments) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestFetchDocumentEscapesName(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v1/documents/droit%20bancaire.pdf" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		w.Write([]byte("%PDF-1.4"))
	})

	data, err := c.FetchDocument(context.Background(), "droit bancaire.pdf")
	if err != nil {
		t.Fatalf("FetchDocument err: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected body: %q", data)
	}
}

func TestMonitorProbe(t *testing.T) {
	healthy := true
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if !healthy {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	})

	m := NewMonitor(c, time.Hour, zerolog.Nop())
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, func() bool { return m.Healthy() })
	if m.LastCheck().IsZero() {
		t.Fatal("expected last check to be recorded")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
