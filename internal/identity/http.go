package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HTTPProvider is a REST client for the organization provider. Every call is
// scoped to one organization.
type HTTPProvider struct {
	baseURL        string
	organizationID string
	token          string
	client         *http.Client
}

type HTTPOption func(*HTTPProvider)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

func NewHTTPProvider(baseURL, organizationID, token string, opts ...HTTPOption) (*HTTPProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity provider url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("identity provider url: %w", err)
	}
	if strings.TrimSpace(organizationID) == "" {
		return nil, ErrNoOrganization
	}
	p := &HTTPProvider{
		baseURL:        baseURL,
		organizationID: organizationID,
		token:          token,
		client:         &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type listEnvelope[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"total_count"`
}

type errorEnvelope struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (p *HTTPProvider) ListMembers(ctx context.Context, page Page) ([]Member, error) {
	var out listEnvelope[Member]
	if err := p.do(ctx, http.MethodGet, p.orgPath("memberships")+pageQuery(page), nil, &out); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out.Data, nil
}

func (p *HTTPProvider) ListInvitations(ctx context.Context, page Page) ([]Invitation, error) {
	var out listEnvelope[Invitation]
	if err := p.do(ctx, http.MethodGet, p.orgPath("invitations")+pageQuery(page), nil, &out); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out.Data, nil
}

func (p *HTTPProvider) UpdateMemberRole(ctx context.Context, userID string, role Role) error {
	if !role.Selectable() {
		return fmt.Errorf("role %q cannot be assigned", role)
	}
	body := map[string]string{"role": string(role)}
	if err := p.do(ctx, http.MethodPatch, p.orgPath("memberships", userID), body, nil); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

func (p *HTTPProvider) RemoveMember(ctx context.Context, userID string) error {
	if err := p.do(ctx, http.MethodDelete, p.orgPath("memberships", userID), nil, nil); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (p *HTTPProvider) RevokeInvitation(ctx context.Context, invitationID string) error {
	if err := p.do(ctx, http.MethodPost, p.orgPath("invitations", invitationID, "revoke"), nil, nil); err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	return nil
}

func (p *HTTPProvider) CreateInvitation(ctx context.Context, email string, role Role) (Invitation, error) {
	body := map[string]string{
		"email_address": strings.TrimSpace(email),
		"role":          string(role),
	}
	var inv Invitation
	if err := p.do(ctx, http.MethodPost, p.orgPath("invitations"), body, &inv); err != nil {
		return Invitation{}, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

func (p *HTTPProvider) orgPath(parts ...string) string {
	segments := []string{"organizations", url.PathEscape(p.organizationID)}
	for _, part := range parts {
		segments = append(segments, url.PathEscape(part))
	}
	return "/" + strings.Join(segments, "/")
}

func pageQuery(page Page) string {
	page = page.Normalize()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(page.Limit))
	q.Set("offset", strconv.Itoa(page.Offset))
	return "?" + q.Encode()
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		switch {
		case len(env.Errors) > 0:
			apiErr.Code = env.Errors[0].Code
			apiErr.Message = env.Errors[0].LongMessage
			if apiErr.Message == "" {
				apiErr.Message = env.Errors[0].Message
			}
		case env.Message != "":
			apiErr.Message = env.Message
		case env.Error != "":
			apiErr.Message = env.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
	}
	return apiErr
}
