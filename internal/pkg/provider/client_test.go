package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		TransactPath: "/v2/transact",
		QueryPath:    "/transact/query",
		ValidatePath: "/transact/validate",
		APIKey:       "test-api-key",
		ClientSecret: "test-secret",
		MockMode:     "inspect",
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

func TestComputeSignature(t *testing.T) {
	ref := "abc123def456"
	secret := "secret123"

	sum := md5.Sum([]byte(ref + ";" + secret))
	want := hex.EncodeToString(sum[:])

	if got := ComputeSignature(ref, secret); got != want {
		t.Fatalf("ComputeSignature = %q, want %q", got, want)
	}
}

func TestNewRequestRef(t *testing.T) {
	ref := NewRequestRef()
	if len(ref) != 32 {
		t.Fatalf("expected 32 hex chars, got %d: %q", len(ref), ref)
	}
	if _, err := hex.DecodeString(ref); err != nil {
		t.Fatalf("request ref is not hex: %v", err)
	}
	if NewRequestRef() == ref {
		t.Fatalf("expected unique refs")
	}
}

func TestTransactSignsAndInjectsMockMode(t *testing.T) {
	var gotAuth, gotSig string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSig = r.Header.Get("Signature")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"WaitingForOTP","data":{"reference":"prov_1"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	payload := map[string]any{
		"transaction": map[string]any{"amount": 100.0, "currency": "NGN"},
	}

	res, err := c.Transact(context.Background(), payload, "myref123")
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	if res.RequestRef != "myref123" {
		t.Fatalf("expected request ref to be preserved, got %q", res.RequestRef)
	}
	if gotAuth != "Bearer test-api-key" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
	if want := ComputeSignature("myref123", "test-secret"); gotSig != want {
		t.Fatalf("Signature = %q, want %q", gotSig, want)
	}

	tx := gotBody["transaction"].(map[string]any)
	if tx["mock_mode"] != "inspect" {
		t.Fatalf("expected mock_mode injected, got %v", tx["mock_mode"])
	}
	if res.Data["status"] != "WaitingForOTP" {
		t.Fatalf("unexpected response data: %v", res.Data)
	}
}

func TestTransactGeneratesRequestRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Transact(context.Background(), map[string]any{}, "")
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if len(res.RequestRef) != 32 {
		t.Fatalf("expected generated request ref, got %q", res.RequestRef)
	}
}

func TestTransactMockModeNotOverwritten(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	payload := map[string]any{
		"transaction": map[string]any{"mock_mode": "production"},
	}
	if _, err := c.Transact(context.Background(), payload, ""); err != nil {
		t.Fatalf("Transact: %v", err)
	}

	tx := gotBody["transaction"].(map[string]any)
	if tx["mock_mode"] != "production" {
		t.Fatalf("expected caller mock_mode kept, got %v", tx["mock_mode"])
	}
}

func TestAPIErrorMappingAndRedaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream rejected key test-api-key with secret test-secret`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Transact(context.Background(), map[string]any{}, "ref1")

	var pwaErr *Error
	if !errors.As(err, &pwaErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if pwaErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("StatusCode = %d, want %d", pwaErr.StatusCode, http.StatusBadGateway)
	}
	if pwaErr.RequestRef != "ref1" {
		t.Fatalf("RequestRef = %q, want ref1", pwaErr.RequestRef)
	}
	for _, secret := range []string{"test-api-key", "test-secret"} {
		if strings.Contains(pwaErr.Body, secret) {
			t.Fatalf("error body leaked credential %q: %s", secret, pwaErr.Body)
		}
	}
	if !strings.Contains(pwaErr.Body, "***REDACTED_API_KEY***") {
		t.Fatalf("expected redaction marker in body: %s", pwaErr.Body)
	}
}

func TestNetworkErrorMapping(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	c.HTTPClient.Timeout = 500 * time.Millisecond

	_, err := c.Transact(context.Background(), map[string]any{}, "")
	var pwaErr *Error
	if !errors.As(err, &pwaErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pwaErr.Err == nil {
		t.Fatalf("expected transport error to be wrapped")
	}
}

func TestQueryPreservesBodyRequestRef(t *testing.T) {
	var gotBody map[string]any
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("Signature")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"status":"Successful"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	payload := map[string]any{"request_ref": "existing_ref"}

	res, err := c.Query(context.Background(), payload, "ignored_ref", "header_ref")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotBody["request_ref"] != "existing_ref" {
		t.Fatalf("body request_ref overwritten: %v", gotBody["request_ref"])
	}
	if want := ComputeSignature("header_ref", "test-secret"); gotSig != want {
		t.Fatalf("signature computed over wrong ref")
	}
	if res.RequestRef != "header_ref" {
		t.Fatalf("result should carry the header ref, got %q", res.RequestRef)
	}
}

func TestQueryInsertsRequestRefWhenMissing(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.Query(context.Background(), map[string]any{}, "body_ref", ""); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if gotBody["request_ref"] != "body_ref" {
		t.Fatalf("expected request_ref inserted, got %v", gotBody["request_ref"])
	}
}

func TestValidateHitsValidatePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":"Successful"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.Validate(context.Background(), map[string]any{"otp": "123456"}, "ref", ""); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if gotPath != "/transact/validate" {
		t.Fatalf("Validate hit %q", gotPath)
	}
}

func TestBuildInvoicePayload(t *testing.T) {
	payload := BuildInvoicePayload(50000, "user@example.com", "John Doe",
		map[string]any{"collection_id": "col_1"}, "NGN", "Kore Collection - Rent", "inspect")

	tx := payload["transaction"].(map[string]any)
	if tx["type"] != "debit" || tx["request_type"] != "invoice" {
		t.Fatalf("unexpected transaction block: %v", tx)
	}
	if tx["amount"] != float64(50000) {
		t.Fatalf("amount = %v", tx["amount"])
	}
	customer := tx["customer"].(map[string]any)
	if customer["email"] != "user@example.com" || customer["name"] != "John Doe" {
		t.Fatalf("unexpected customer block: %v", customer)
	}
	meta := tx["meta"].(map[string]any)
	if meta["collection_id"] != "col_1" {
		t.Fatalf("meta not carried: %v", meta)
	}
}

func TestBuildDisbursePayload(t *testing.T) {
	payload := BuildDisbursePayload(25000.50, "0123456789", "058", nil, "", "Payout", "inspect")

	tx := payload["transaction"].(map[string]any)
	if tx["type"] != "credit" || tx["request_type"] != "disburse" {
		t.Fatalf("unexpected transaction block: %v", tx)
	}
	if tx["currency"] != "NGN" {
		t.Fatalf("expected NGN default, got %v", tx["currency"])
	}
	ben := tx["beneficiary"].(map[string]any)
	if ben["account_number"] != "0123456789" || ben["bank_code"] != "058" {
		t.Fatalf("unexpected beneficiary block: %v", ben)
	}
}

func TestBuildSchedulePayloads(t *testing.T) {
	sub := BuildSubscriptionPayload(120000, map[string]any{"frequency": "monthly"}, nil, "NGN", "inspect")
	subTx := sub["transaction"].(map[string]any)
	if subTx["request_type"] != "subscription" {
		t.Fatalf("subscription request_type = %v", subTx["request_type"])
	}

	inst := BuildInstalmentPayload(300000, 100000, map[string]any{"num_installments": 3}, nil, "NGN", "inspect")
	instTx := inst["transaction"].(map[string]any)
	if instTx["request_type"] != "instalment" || instTx["down_payment"] != float64(100000) {
		t.Fatalf("unexpected instalment block: %v", instTx)
	}
}
