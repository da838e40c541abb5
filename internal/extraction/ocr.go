package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// OCRClient submits a PDF to the OCR collaborator and returns recognized text.
type OCRClient interface {
	Recognize(ctx context.Context, pdfData []byte) (string, error)
	Available() bool
}

// ocrHTTPClient is the production OCR client.
type ocrHTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOCRClient creates the OCR collaborator client. When baseURL or apiKey is
// empty the client reports unavailable and the OCR strategy is skipped.
func NewOCRClient(apiKey, baseURL string, callTimeout time.Duration) OCRClient {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &ocrHTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: callTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
}

func (c *ocrHTTPClient) Available() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// ocrResponse is the vendor's recognition result.
type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Recognize uploads the PDF and returns the recognized text.
func (c *ocrHTTPClient) Recognize(ctx context.Context, pdfData []byte) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("ocr not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "report.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(pdfData); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/recognize", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr error (%d): %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return "", fmt.Errorf("failed to parse ocr response: %w", err)
	}
	if ocrResp.Error != "" {
		return "", fmt.Errorf("ocr failed: %s", ocrResp.Error)
	}
	return ocrResp.Text, nil
}
