// Package sheets commits confirmed bookings to a Google Sheets log through
// the values:append endpoint, authorized by a service account.
package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	defaultRange   = "Sheet1!A:Z"
	scope          = "https://www.googleapis.com/auth/spreadsheets"

	maxAttempts = 3
	baseBackoff = 250 * time.Millisecond
)

// Recorder appends booking rows to one spreadsheet range in a fixed column
// order. Missing fields land as empty cells so columns never shift.
type Recorder struct {
	client     *http.Client
	baseURL    string
	sheetID    string
	sheetRange string
	columns    []string
	backoff    time.Duration
}

// Opts holds parameters for creating a Recorder.
type Opts struct {
	SheetID   string
	Range     string   // defaults to Sheet1!A:Z
	CredsPath string   // service account JSON
	Columns   []string // column layout, typically profile fields + Timestamp
	// For testing: inject a client and endpoint instead of real credentials.
	Client  *http.Client
	BaseURL string
}

// New creates a Recorder. Outside tests the service account credentials are
// read and exchanged for an authorized client.
func New(ctx context.Context, opts Opts) (*Recorder, error) {
	if opts.SheetID == "" {
		return nil, fmt.Errorf("sheets: sheet id is required")
	}
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("sheets: column order is required")
	}
	r := &Recorder{
		client:     opts.Client,
		baseURL:    opts.BaseURL,
		sheetID:    opts.SheetID,
		sheetRange: opts.Range,
		columns:    opts.Columns,
		backoff:    baseBackoff,
	}
	if r.baseURL == "" {
		r.baseURL = defaultBaseURL
	}
	if r.sheetRange == "" {
		r.sheetRange = defaultRange
	}
	if r.client == nil {
		data, err := os.ReadFile(opts.CredsPath)
		if err != nil {
			return nil, fmt.Errorf("sheets: read credentials: %w", err)
		}
		conf, err := google.JWTConfigFromJSON(data, scope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		r.client = conf.Client(ctx)
	}
	log.Printf("✅ Sheets recorder ready (%d columns, range %s)", len(r.columns), r.sheetRange)
	return r, nil
}

type appendRequest struct {
	Values [][]string `json:"values"`
}

// AppendRow lays the row out in column order and appends it, retrying
// transient failures with doubling backoff. Client errors other than 408
// and 429 fail immediately; retrying cannot fix a bad request.
func (r *Recorder) AppendRow(ctx context.Context, row map[string]string) error {
	values := make([]string, len(r.columns))
	for i, col := range r.columns {
		values[i] = row[col]
	}
	payload, err := sonic.Marshal(appendRequest{Values: [][]string{values}})
	if err != nil {
		return fmt.Errorf("sheets: encode row: %w", err)
	}

	backoff := r.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err := r.append(ctx, payload)
		if err == nil {
			if attempt > 1 {
				log.Printf("✅ Sheets append recovered on attempt %d", attempt)
			}
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return err
		}
		log.Printf("⚠️ Sheets append attempt %d/%d failed: %v", attempt, maxAttempts, err)
		lastErr = err
	}
	return lastErr
}

func (r *Recorder) append(ctx context.Context, payload []byte) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		r.baseURL, url.PathEscape(r.sheetID), url.PathEscape(r.sheetRange))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sheets: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err = fmt.Errorf("sheets: append failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if isPermanentStatus(resp.StatusCode) {
		return &permanentError{err: err}
	}
	return err
}

// permanentError marks failures retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func isPermanentStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}
