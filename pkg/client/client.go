package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

// EquipmentStoreClient talks to the spreadsheet-backed equipment store.
// The store exposes a single endpoint and multiplexes operations through
// an action verb, read operations as query parameters and mutations as a
// JSON body.
type EquipmentStoreClient interface {
	FetchAll(ctx context.Context) ([]types.Equipment, error)
	FetchHistory(ctx context.Context, tag string) ([]types.HistoryEntry, error)
	CreateOrUpdate(ctx context.Context, e types.Equipment) error
	MarkObsolete(ctx context.Context, tag, reason, category string) error
	SubmitSuggestion(ctx context.Context, s types.Suggestion) error
	FetchSuggestions(ctx context.Context) ([]types.Suggestion, error)
}

type storeClient struct {
	url        string
	httpClient http.Client
	normalizer *compliance.CategoryNormalizer
}

var tracer = otel.Tracer("equipment-store-client")

func New(storeURL string, timeout time.Duration, normalizer *compliance.CategoryNormalizer) EquipmentStoreClient {
	if normalizer == nil {
		normalizer = compliance.NewCategoryNormalizer()
	}

	return &storeClient{
		url: storeURL,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		normalizer: normalizer,
	}
}

// envelope is the store's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *storeClient) FetchAll(ctx context.Context) ([]types.Equipment, error) {
	var err error
	ctx, span := tracer.Start(ctx, "fetch-equipment")
	defer func() { endSpan(err, span) }()

	body, err := c.get(ctx, url.Values{"action": []string{"read"}})
	if err != nil {
		return nil, err
	}

	raw := []map[string]any{}
	if err = json.Unmarshal(body, &raw); err != nil {
		err = fmt.Errorf("failed to unmarshal equipment list: %w", err)
		return nil, err
	}

	items := make([]types.Equipment, 0, len(raw))
	for idx, record := range raw {
		items = append(items, c.mapRecord(record, idx))
	}

	zerolog.Ctx(ctx).Debug().Int("count", len(items)).Msg("fetched equipment from store")

	return items, nil
}

func (c *storeClient) FetchHistory(ctx context.Context, tag string) ([]types.HistoryEntry, error) {
	var err error
	ctx, span := tracer.Start(ctx, "fetch-equipment-history")
	defer func() { endSpan(err, span) }()

	body, err := c.get(ctx, url.Values{
		"action": []string{"history"},
		"tag":    []string{tag},
	})
	if err != nil {
		return nil, err
	}

	entries := []types.HistoryEntry{}
	if err = json.Unmarshal(body, &entries); err != nil {
		err = fmt.Errorf("failed to unmarshal history for %s: %w", tag, err)
		return nil, err
	}

	return entries, nil
}

func (c *storeClient) CreateOrUpdate(ctx context.Context, e types.Equipment) error {
	var err error
	ctx, span := tracer.Start(ctx, "create-equipment")
	defer func() { endSpan(err, span) }()

	err = c.post(ctx, map[string]any{
		"action":  "create",
		"payload": flatten(e),
	})
	return err
}

func (c *storeClient) MarkObsolete(ctx context.Context, tag, reason, category string) error {
	var err error
	ctx, span := tracer.Start(ctx, "mark-equipment-obsolete")
	defer func() { endSpan(err, span) }()

	err = c.post(ctx, map[string]any{
		"action":   "delete",
		"tag":      tag,
		"reason":   reason,
		"category": category,
	})
	return err
}

func (c *storeClient) SubmitSuggestion(ctx context.Context, s types.Suggestion) error {
	var err error
	ctx, span := tracer.Start(ctx, "submit-suggestion")
	defer func() { endSpan(err, span) }()

	err = c.post(ctx, map[string]any{
		"action": "suggestion",
		"payload": map[string]string{
			"nome":      s.Name,
			"categoria": s.Category,
			"descricao": s.Description,
		},
	})
	return err
}

func (c *storeClient) FetchSuggestions(ctx context.Context) ([]types.Suggestion, error) {
	var err error
	ctx, span := tracer.Start(ctx, "fetch-suggestions")
	defer func() { endSpan(err, span) }()

	body, err := c.get(ctx, url.Values{"action": []string{"read_suggestions"}})
	if err != nil {
		return nil, err
	}

	suggestions := []types.Suggestion{}
	if err = json.Unmarshal(body, &suggestions); err != nil {
		err = fmt.Errorf("failed to unmarshal suggestions: %w", err)
		return nil, err
	}

	return suggestions, nil
}

func (c *storeClient) get(ctx context.Context, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.unwrap(resp)
}

func (c *storeClient) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	// the apps-script store only accepts simple requests
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	_, err = c.unwrap(resp)
	return err
}

func (c *storeClient) unwrap(resp *http.Response) (json.RawMessage, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store request failed with status code %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	env := envelope{}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	if !env.Success {
		if env.Message == "" {
			env.Message = "no reason given"
		}
		return nil, fmt.Errorf("store rejected the request: %s", env.Message)
	}

	return env.Data, nil
}

func endSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
