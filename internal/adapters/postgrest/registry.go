// Package postgrest checks signup eligibility against a hosted PostgREST backend by calling
// the check_student_eligibility RPC.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/registry"
)

const (
	rpcPath         = "/rest/v1/rpc/check_student_eligibility"
	maxResponseSize = 64 << 10
)

type Options struct {
	BaseURL string
	APIKey  string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Registry is a registry.Registry backed by PostgREST.
type Registry struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewRegistry(opts Options) (*Registry, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("postgrest base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Registry{endpoint: base + rpcPath, apiKey: opts.APIKey, client: client}, nil
}

type rpcRequest struct {
	Matricule string `json:"p_matricule"`
}

// rpcRow is one row of the hosted RPC result.
type rpcRow struct {
	Valid     bool `json:"valid"`
	Available bool `json:"available"`
}

func (r *Registry) CheckEligibility(ctx context.Context, id domain.RegistrationID) (registry.Eligibility, error) {
	body, err := json.Marshal(rpcRequest{Matricule: string(id)})
	if err != nil {
		return registry.Eligibility{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return registry.Eligibility{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return registry.Eligibility{}, fmt.Errorf("eligibility rpc: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return registry.Eligibility{}, fmt.Errorf("read eligibility response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return registry.Eligibility{}, fmt.Errorf("eligibility rpc: unexpected status %d", resp.StatusCode)
	}

	var rows []rpcRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return registry.Eligibility{}, fmt.Errorf("decode eligibility response: %w", err)
	}
	// An empty result means the id is not on the allow-list.
	if len(rows) == 0 {
		return registry.Eligibility{}, nil
	}
	return registry.Eligibility{Valid: rows[0].Valid, Available: rows[0].Available}.Normalize(), nil
}
