package effortlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Effortline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// DraftEntry is a staged, unsubmitted entry. All fields are raw text.
type DraftEntry struct {
	LocalID     string `json:"local_id"`
	DealName    string `json:"deal_name"`
	Department  string `json:"department"`
	Type        string `json:"type"`
	HoursWorked string `json:"hours_worked"`
	Description string `json:"description"`
	TaskDate    string `json:"task_date"`
}

type Submission struct {
	ID          string  `json:"id"`
	Analyst     string  `json:"analyst"`
	AnalystName string  `json:"analyst_name,omitempty"`
	DealName    string  `json:"deal_name"`
	Department  string  `json:"department"`
	Type        string  `json:"type"`
	HoursWorked float64 `json:"hours_worked"`
	Description string  `json:"description,omitempty"`
	TaskDate    string  `json:"task_date"`
	SubmittedAt string  `json:"submitted_at"`
}

type Rating struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Value        int    `json:"value"`
	RatedBy      string `json:"rated_by"`
	RatedAt      string `json:"rated_at"`
	Analyst      string `json:"analyst"`
	DealName     string `json:"deal_name"`
	Department   string `json:"department"`
	Type         string `json:"type"`
	TaskDate     string `json:"task_date"`
}

type RatedSubmission struct {
	Submission Submission `json:"submission"`
	Ratings    []Rating   `json:"ratings"`
	Mine       *Rating    `json:"mine,omitempty"`
}

// Reconciliation is the unrated/rated split of all submissions.
type Reconciliation struct {
	Unrated      []Submission      `json:"unrated"`
	Rated        []RatedSubmission `json:"rated"`
	UnratedCount int               `json:"unrated_count"`
	RatedCount   int               `json:"rated_count"`
}

type Session struct {
	Token       string `json:"token"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
	ExpiresAt   string `json:"expires_at"`
}

type Me struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
	Source      string `json:"source"`
	DraftCount  int    `json:"draft_count"`
}

type Drafts struct {
	Entries           []DraftEntry                 `json:"entries"`
	Errors            map[string]map[string]string `json:"errors"`
	Count             int                          `json:"count"`
	TotalHours        float64                      `json:"total_hours"`
	HoursByDepartment map[string]float64           `json:"hours_by_department"`
}

type Draft struct {
	Entry      DraftEntry        `json:"entry"`
	FieldError string            `json:"field_error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type CommitResult struct {
	Submissions []Submission `json:"submissions"`
	Count       int          `json:"count"`
	TotalHours  float64      `json:"total_hours"`
	Message     string       `json:"message"`
	NextView    string       `json:"next_view"`
}

type RateResult struct {
	Rating     Rating `json:"rating"`
	Transition string `json:"transition"`
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login signs in and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, identity, secret string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{"identity": identity, "secret": secret}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp, err
}

// Logout ends the session. Its drafts are discarded server side.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "auth/logout", nil, nil)
	if err == nil {
		c.BearerToken = ""
	}
	return err
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var resp Me
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// Drafts returns the staged entries with their stored errors and totals.
func (c *Client) Drafts(ctx context.Context) (Drafts, error) {
	var resp Drafts
	err := c.do(ctx, http.MethodGet, "drafts", nil, &resp)
	return resp, err
}

// AddDraft appends a blank entry and returns it.
func (c *Client) AddDraft(ctx context.Context) (DraftEntry, error) {
	var resp Draft
	err := c.do(ctx, http.MethodPost, "drafts", nil, &resp)
	return resp.Entry, err
}

// UpdateDraft sets one field. The returned Draft carries the live message
// for that field, empty when it is valid.
func (c *Client) UpdateDraft(ctx context.Context, localID, field, value string) (Draft, error) {
	var resp Draft
	err := c.do(ctx, http.MethodPatch, "drafts/"+url.PathEscape(localID), map[string]any{"field": field, "value": value}, &resp)
	return resp, err
}

func (c *Client) RemoveDraft(ctx context.Context, localID string) error {
	return c.do(ctx, http.MethodDelete, "drafts/"+url.PathEscape(localID), nil, nil)
}

func (c *Client) CheckDraft(ctx context.Context, localID string) (Draft, error) {
	var resp Draft
	err := c.do(ctx, http.MethodPost, "drafts/"+url.PathEscape(localID)+"/check", nil, &resp)
	return resp, err
}

// Commit submits every staged entry as one batch.
func (c *Client) Commit(ctx context.Context) (CommitResult, error) {
	var resp CommitResult
	err := c.do(ctx, http.MethodPost, "drafts/commit", nil, &resp)
	return resp, err
}

func (c *Client) MySubmissions(ctx context.Context) ([]Submission, error) {
	var resp struct {
		Items []Submission `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "submissions/mine", nil, &resp)
	return resp.Items, err
}

func (c *Client) Reconcile(ctx context.Context) (Reconciliation, error) {
	var resp Reconciliation
	err := c.do(ctx, http.MethodGet, "ratings/reconcile", nil, &resp)
	return resp, err
}

func (c *Client) Ratings(ctx context.Context) ([]Rating, error) {
	var resp struct {
		Items []Rating `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "ratings", nil, &resp)
	return resp.Items, err
}

// Rate scores a submission.
func (c *Client) Rate(ctx context.Context, submissionID string, value int) (RateResult, error) {
	var resp RateResult
	err := c.do(ctx, http.MethodPost, "ratings", map[string]any{"submission_id": submissionID, "value": value}, &resp)
	return resp, err
}

func (c *Client) UpdateRating(ctx context.Context, ratingID string, value int) (RateResult, error) {
	var resp RateResult
	err := c.do(ctx, http.MethodPatch, "ratings/"+url.PathEscape(ratingID), map[string]any{"value": value}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
