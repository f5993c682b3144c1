package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyHTML("<p>test</p>").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>test</p>" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "<p>test</p>")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should not be set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionCreated(2024, 1).
		TriggerFormReset().
		TriggerSuccessNotification("Test message").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"transaction:created"`,
		`"form:reset"`,
		`"show-notification"`,
		`"year":2024`,
		`"month":1`,
		`"type":"success"`,
		`"duration":3000`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_TriggerTransactionUpdated(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerTransactionUpdated("tx-1", 2024, 6).Write(w)

	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	got := triggers["transaction:updated"]
	if got["id"] != "tx-1" || got["year"] != float64(2024) || got["month"] != float64(6) {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestHTMXResponseBuilder_TriggerIsValidJSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionDeleted("abc").
		TriggerErrorNotification(`quote " and <tag>`).
		Write(w)

	var decoded map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &decoded); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	if decoded["transaction:deleted"]["id"] != "abc" {
		t.Errorf("deleted payload = %v", decoded["transaction:deleted"])
	}
	if decoded["show-notification"]["message"] != `quote " and <tag>` {
		t.Errorf("message = %v", decoded["show-notification"]["message"])
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusUnauthorized).
		Redirect("/login").
		Write(w)

	if w.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("HX-Redirect = %q, want %q", w.Header().Get("HX-Redirect"), "/login")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"not found", ErrorResponse(http.StatusNotFound, "bad"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("expected error notification, got %q", w.Header().Get("HX-Trigger"))
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "<script>alert(1)</script>").Write(w)

	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("body not escaped: %s", w.Body.String())
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusBadGateway, "analysis failed")

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"analysis failed"}` {
		t.Errorf("body = %s", got)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}
