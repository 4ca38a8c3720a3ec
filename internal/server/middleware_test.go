package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nmorel/lexidraft/internal/auth"
	"github.com/nmorel/lexidraft/internal/cabinet"
)

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	RequestIDMiddleware(handler).ServeHTTP(rec, req)

	if captured == "" {
		t.Error("request ID not set in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != captured {
		t.Errorf("X-Request-ID header = %q, want %q", got, captured)
	}
}

func TestRequestIDMiddleware_HonorsIncomingID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()

	RequestIDMiddleware(handler).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cab := &cabinet.Cabinet{
		ID:   "cabinet-durand",
		Name: "Cabinet Durand",
		Role: "avocat",
		APIKeys: []cabinet.APIKey{
			{KeyHash: auth.HashAPIKey("sk-valid"), Description: "test"},
		},
	}
	authenticator := auth.NewAuthenticator([]*cabinet.Cabinet{cab})

	var captured *cabinet.Cabinet
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCabinet(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := AuthMiddleware(authenticator)(handler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid key",
			header:     "Bearer sk-valid",
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid key",
			header:     "Bearer sk-wrong",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured = nil
			req := httptest.NewRequest("POST", "/v1/drafts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if captured == nil || captured.ID != "cabinet-durand" {
					t.Errorf("cabinet in context = %+v, want cabinet-durand", captured)
				}
			}
		})
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("no deadline set on request context")
		}
		if time.Until(deadline) > 50*time.Millisecond {
			t.Errorf("deadline too far in the future: %v", time.Until(deadline))
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	TimeoutMiddleware(50 * time.Millisecond)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLoggingMiddleware_EmitsCustomFields(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&capturingWriter{}, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "draft_id", "abc-123")
		AddError(r.Context(), nil) // no-op
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest("POST", "/v1/drafts", nil)
	rec := httptest.NewRecorder()

	LoggingMiddleware(logger)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

type capturingWriter struct{ data []byte }

func (w *capturingWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
