package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// HTTPClient implements Client against the hosted extraction service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPOptions configures the extraction HTTP client.
type HTTPOptions struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewHTTPClient constructs an extraction client. When a token URL is
// configured, requests authenticate via the OAuth2 client-credentials grant.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("EXTRACTION_BASE_URL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if strings.TrimSpace(opts.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Extract submits the document and returns the normalized result. Unparseable
// or unsupported documents and timeouts surface as ErrExtractionFailed; the
// caller must not create an entry in that case.
func (c *HTTPClient) Extract(ctx context.Context, fileName string, document io.Reader) (Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", &body)
	if err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, fmt.Errorf("%w: extraction request timed out", ErrExtractionFailed)
		}
		return Result{}, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read extraction response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnsupportedMediaType:
		return Result{}, fmt.Errorf("%w: %s", ErrExtractionFailed, extractionErrorMessage(data))
	default:
		return Result{}, fmt.Errorf("extraction service status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("%w: invalid extraction payload: %v", ErrExtractionFailed, err)
	}
	if err := validateResult(result); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return result, nil
}

func validateResult(result Result) error {
	if len(result.Items) == 0 {
		return fmt.Errorf("no line items extracted")
	}
	for i, item := range result.Items {
		if strings.TrimSpace(item.ProductCode) == "" && strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("item %d has no product code or description", i)
		}
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("item %d quantity must be positive", i)
		}
		if item.UnitValue.IsNegative() {
			return fmt.Errorf("item %d unit value must not be negative", i)
		}
	}
	switch result.Confidence.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("unknown risk level %q", result.Confidence.RiskLevel)
	}
	return nil
}

func extractionErrorMessage(data []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return "document could not be parsed"
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

var _ Client = (*HTTPClient)(nil)
