package extraction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientExtractSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "nfe-1234.xml" {
			t.Fatalf("unexpected file name %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"documentNumber": "1234",
			"documentSeries": "1",
			"supplierName": "Acme Ltda",
			"items": [
				{"productCode": "BR-100", "description": "Bracket", "quantity": "5", "unitOfMeasure": "UN", "unitValue": "12.50"}
			],
			"confidence": {"overall": 0.97, "riskLevel": "low", "fieldScores": {"documentNumber": 0.99}}
		}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Extract(context.Background(), "nfe-1234.xml", strings.NewReader("<xml/>"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.DocumentNumber != "1234" || result.SupplierName != "Acme Ltda" {
		t.Fatalf("unexpected header fields: %+v", result)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Quantity.String() != "5" {
		t.Fatalf("unexpected quantity %s", result.Items[0].Quantity)
	}
	if result.Confidence.RiskLevel != RiskLow {
		t.Fatalf("unexpected risk level %q", result.Confidence.RiskLevel)
	}
}

func TestHTTPClientExtractUnparseableDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"message": "not a fiscal document"}}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Extract(context.Background(), "notes.txt", strings.NewReader("hello"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "not a fiscal document") {
		t.Fatalf("expected service message in error, got %v", err)
	}
}

func TestHTTPClientExtractTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Extract(context.Background(), "nfe.xml", strings.NewReader("<xml/>"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed on timeout, got %v", err)
	}
}

func TestHTTPClientExtractServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Extract(context.Background(), "nfe.xml", strings.NewReader("<xml/>"))
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("transient server error must not be ErrExtractionFailed: %v", err)
	}
}

func TestHTTPClientExtractRejectsEmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documentNumber": "9", "items": [], "confidence": {"overall": 0.5, "riskLevel": "medium"}}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Extract(context.Background(), "nfe.xml", strings.NewReader("<xml/>"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed for empty items, got %v", err)
	}
}
