package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Error is a non-success response from ESI. Callers treat it as "skip this
// unit of work", never as a reason to abort a whole pass.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("esi: status %d: %s", e.StatusCode, e.Body)
}

// Blueprint is a blueprint record as reported by ESI.
type Blueprint struct {
	ItemID             int64  `json:"item_id"`
	TypeID             int32  `json:"type_id"`
	LocationID         int64  `json:"location_id"`
	LocationFlag       string `json:"location_flag"`
	Quantity           int64  `json:"quantity"`
	TimeEfficiency     int32  `json:"time_efficiency"`
	MaterialEfficiency int32  `json:"material_efficiency"`
	Runs               int32  `json:"runs"`
}

// IndustryJob is an industry job record as reported by ESI.
type IndustryJob struct {
	JobID       int64      `json:"job_id"`
	ActivityID  int32      `json:"activity_id"`
	BlueprintID int64      `json:"blueprint_id"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// NameRef is an entry returned by the bulk /universe/names/ resolver.
type NameRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Structure is the response of the authenticated structure lookup.
type Structure struct {
	Name          string `json:"name"`
	SolarSystemID int64  `json:"solar_system_id"`
	TypeID        int32  `json:"type_id"`
}

// Client is a rate-limited ESI HTTP client.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// NewClient creates an ESI client from the configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rps
	}
	return &Client{
		http:      &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CharacterBlueprints fetches all blueprints owned by a character.
func (c *Client) CharacterBlueprints(ctx context.Context, characterID int64, token string) ([]Blueprint, error) {
	path := fmt.Sprintf("/characters/%d/blueprints/", characterID)
	return listPages[Blueprint](ctx, c, path, token)
}

// CorporationBlueprints fetches all blueprints owned by a corporation.
// The token must belong to a director of that corporation.
func (c *Client) CorporationBlueprints(ctx context.Context, corporationID int64, token string) ([]Blueprint, error) {
	path := fmt.Sprintf("/corporations/%d/blueprints/", corporationID)
	return listPages[Blueprint](ctx, c, path, token)
}

// CharacterIndustryJobs fetches a character's active industry jobs.
func (c *Client) CharacterIndustryJobs(ctx context.Context, characterID int64, token string) ([]IndustryJob, error) {
	path := fmt.Sprintf("/characters/%d/industry/jobs/?include_completed=false", characterID)
	return listPages[IndustryJob](ctx, c, path, token)
}

// CorporationIndustryJobs fetches a corporation's active industry jobs.
func (c *Client) CorporationIndustryJobs(ctx context.Context, corporationID int64, token string) ([]IndustryJob, error) {
	path := fmt.Sprintf("/corporations/%d/industry/jobs/?include_completed=false", corporationID)
	return listPages[IndustryJob](ctx, c, path, token)
}

// ResolveNames resolves a set of identifiers to names and categories via the
// unauthenticated bulk endpoint. Identifiers unknown to the public catalog are
// simply absent from the result.
func (c *Client) ResolveNames(ctx context.Context, ids []int64) ([]NameRef, error) {
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	var refs []NameRef
	if err := c.doJSON(ctx, http.MethodPost, "/universe/names/", "", bytes.NewReader(payload), &refs, nil); err != nil {
		return nil, err
	}
	return refs, nil
}

// Structure fetches a single player structure by id. Requires a token whose
// character is docked/has access; 403 is the common failure here.
func (c *Client) Structure(ctx context.Context, structureID int64, token string) (*Structure, error) {
	var s Structure
	path := fmt.Sprintf("/universe/structures/%d/", structureID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &s, nil); err != nil {
		return nil, err
	}
	return &s, nil
}

// listPages fetches every page of a paginated list endpoint, following the
// X-Pages response header sequentially.
func listPages[T any](ctx context.Context, c *Client, path string, token string) ([]T, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	var all []T
	var page1 []T
	var header http.Header
	if err := c.doJSON(ctx, http.MethodGet, path+sep+"page=1", token, nil, &page1, &header); err != nil {
		return nil, err
	}
	all = append(all, page1...)

	totalPages := 1
	if p := header.Get("X-Pages"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid X-Pages header %q: %w", p, err)
		}
		totalPages = n
	}
	for page := 2; page <= totalPages; page++ {
		var next []T
		url := fmt.Sprintf("%s%spage=%d", path, sep, page)
		if err := c.doJSON(ctx, http.MethodGet, url, token, nil, &next, nil); err != nil {
			return nil, err
		}
		all = append(all, next...)
	}
	return all, nil
}

// doJSON performs one rate-limited request and decodes the JSON response into
// dst. Non-2xx responses become *Error. If header is non-nil, the response
// headers are copied into it.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body io.Reader, dst any, header *http.Header) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if header != nil {
		*header = resp.Header.Clone()
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
