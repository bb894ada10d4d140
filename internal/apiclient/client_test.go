package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dialdesk/internal/device"
	"dialdesk/internal/model"
)

func newTestServer(t *testing.T, calls *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method + " " + r.URL.Path {
		case "POST /api/auth/login":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "password123" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid email or password","code":"INVALID_CREDENTIALS"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok-abc",
				"user":  &model.User{ID: 7, FullName: "Dana Reyes", Email: req.Email, Extension: "1007"},
			})
		case "POST /api/telephony/token":
			assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"token":      "vendor-jwt",
				"identity":   "1007",
				"expires_at": time.Now().Add(time.Hour),
			})
		case "PUT /api/users/7/call-status":
			assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
			var req struct {
				OnCall  bool   `json:"on_call"`
				CallSID string `json:"call_sid"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.OnCall {
				assert.Equal(t, "CA-42", req.CallSID)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found","code":"NOT_FOUND"}`))
		}
	}))
}

func TestClient_LoginStoresCredential(t *testing.T) {
	var calls []string
	server := newTestServer(t, &calls)
	defer server.Close()

	client := New(server.URL + "/")
	user, err := client.Login("dana@example.com", "password123")

	assert.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "tok-abc", client.Token())
	assert.Equal(t, []string{"POST /api/auth/login"}, calls)
}

func TestClient_LoginRejected(t *testing.T) {
	var calls []string
	server := newTestServer(t, &calls)
	defer server.Close()

	client := New(server.URL)
	user, err := client.Login("dana@example.com", "wrong")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
	assert.Contains(t, err.Error(), "INVALID_CREDENTIALS")
	assert.Nil(t, user)
	assert.Empty(t, client.Token())
}

func TestClient_MintVendorToken(t *testing.T) {
	var calls []string
	server := newTestServer(t, &calls)
	defer server.Close()

	client := New(server.URL)
	_, err := client.Login("dana@example.com", "password123")
	assert.NoError(t, err)

	token, err := client.MintVendorToken("")

	assert.NoError(t, err)
	assert.Equal(t, "vendor-jwt", token)
}

func TestClient_ReportCallLifecycle(t *testing.T) {
	var calls []string
	server := newTestServer(t, &calls)
	defer server.Close()

	client := New(server.URL)
	_, err := client.Login("dana@example.com", "password123")
	assert.NoError(t, err)

	err = client.ReportCallStarted(device.Call{
		SID:       "CA-42",
		From:      "+15557001212",
		Direction: model.DirectionInbound,
		Status:    device.CallAnswered,
		StartedAt: time.Now(),
	})
	assert.NoError(t, err)

	err = client.ReportCallEnded()
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/auth/login",
		"PUT /api/users/7/call-status",
		"PUT /api/users/7/call-status",
	}, calls)
}

func TestClient_ReportsRequireLogin(t *testing.T) {
	client := New("http://localhost:9999")

	assert.Error(t, client.ReportCallStarted(device.Call{SID: "CA-42"}))
	assert.Error(t, client.ReportCallEnded())
}
