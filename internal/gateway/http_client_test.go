package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClient_SendSMS_Success(t *testing.T) {
	t.Parallel()

	type gotReq struct {
		Method      string
		Path        string
		ContentType string
		APIKey      string
		Body        []byte
	}

	var captured gotReq

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.ContentType = r.Header.Get("Content-Type")
		captured.APIKey = r.Header.Get("X-API-Key")

		defer r.Body.Close()
		captured.Body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{"id":"12345","sent":0,"delivered":0,"not_delivered":0,"status":"queued"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret-key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	schedule := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	res, err := c.SendSMS(ctx, SendAttrs{
		Sender:   "Shop",
		Phone:    "380671234567",
		Body:     "hello",
		Schedule: &schedule,
		Lifetime: 600,
	})
	if err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected valid result, got %+v", res)
	}
	if res.Result.ID != "12345" || res.Result.Status != "queued" {
		t.Fatalf("unexpected result payload: %+v", res)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected POST, got %q", captured.Method)
	}
	if captured.Path != "/sendSMS" {
		t.Fatalf("expected path /sendSMS, got %q", captured.Path)
	}
	if captured.ContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", captured.ContentType)
	}
	if captured.APIKey != "secret-key" {
		t.Fatalf("expected api key header, got %q", captured.APIKey)
	}

	var payload map[string]any
	if err := json.Unmarshal(captured.Body, &payload); err != nil {
		t.Fatalf("failed to decode request body: %v body=%q", err, string(captured.Body))
	}
	if payload["phone"] != "380671234567" {
		t.Fatalf("expected phone in payload, got %v", payload["phone"])
	}
	if payload["sender"] != "Shop" {
		t.Fatalf("expected sender in payload, got %v", payload["sender"])
	}
	if payload["datetime"] != "2026-03-01 12:30:00" {
		t.Fatalf("expected formatted schedule, got %v", payload["datetime"])
	}
	if payload["sms_lifetime"] != float64(600) {
		t.Fatalf("expected lifetime 600, got %v", payload["sms_lifetime"])
	}
}

func TestHTTPClient_SendSMS_GatewayErrorPayloadIsInvalidResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"error":"Invalid API key","code":401}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	res, err := c.SendSMS(context.Background(), SendAttrs{Phone: "1", Body: "x"})
	if err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}
	if res.Valid() {
		t.Fatalf("expected invalid result for error payload, got %+v", res)
	}
	if res.Err != "Invalid API key" || res.Code != 401 {
		t.Fatalf("unexpected error payload: %+v", res)
	}
}

func TestHTTPClient_SendSMS_Non200_ReturnsErrorWithBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	_, err := c.SendSMS(context.Background(), SendAttrs{Phone: "1", Body: "x"})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	msg := err.Error()
	if !strings.Contains(msg, "unexpected status code: 502") {
		t.Fatalf("expected error to mention status code, got: %v", err)
	}
	if !strings.Contains(msg, `body="upstream broken"`) {
		t.Fatalf("expected error to include body, got: %v", err)
	}
}

func TestHTTPClient_SendSMS_InvalidJSON_ReturnsErrorWithBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("THIS IS NOT JSON"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	_, err := c.SendSMS(context.Background(), SendAttrs{Phone: "1", Body: "x"})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to decode json") {
		t.Fatalf("expected decode error, got: %v", err)
	}
}

func TestHTTPClient_GetCampaignInfo_PassesID(t *testing.T) {
	t.Parallel()

	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getCampaignInfo" {
			t.Errorf("expected path /getCampaignInfo, got %q", r.URL.Path)
		}
		gotID = r.URL.Query().Get("id")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{"id":"987","sent":1,"delivered":1,"not_delivered":0,"status":"done"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	res, err := c.GetCampaignInfo(context.Background(), "987")
	if err != nil {
		t.Fatalf("GetCampaignInfo() error: %v", err)
	}
	if gotID != "987" {
		t.Fatalf("expected id query param 987, got %q", gotID)
	}
	if res.Result.Delivered != 1 || res.Result.Status != "done" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{"id":"1"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetCampaignInfo(ctx, "1")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "context") &&
		!strings.Contains(strings.ToLower(err.Error()), "deadline") {
		t.Fatalf("expected context/deadline error, got: %v", err)
	}
}
