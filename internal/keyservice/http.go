package keyservice

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
)

const maxResponseBytes = 4 << 20

// HTTPService calls the procedure endpoints `key.list` and `key.delete`
// under a base URL.
type HTTPService struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPService(baseURL, token string, client *http.Client) (*HTTPService, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("key service url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPService{baseURL: baseURL, token: token, client: client}, nil
}

type rpcEnvelope struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

func (s *HTTPService) ListKeys(ctx context.Context) ([]Key, error) {
	var keys []Key
	if err := s.call(ctx, http.MethodGet, "key.list", nil, &keys); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *HTTPService) DeleteKeys(ctx context.Context, keyIDs []string) error {
	if len(keyIDs) == 0 {
		return nil
	}
	body := map[string][]string{"keyIds": keyIDs}
	if err := s.call(ctx, http.MethodPost, "key.delete", body, nil); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

func (s *HTTPService) call(ctx context.Context, method, procedure string, in, out any) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/"+procedure, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	var env rpcEnvelope
	decodeErr := json.Unmarshal(data, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && env.Error != nil) {
		rpcErr := &RPCError{HTTPStatus: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			rpcErr.Code = env.Error.Code
			rpcErr.Message = env.Error.Message
		} else if msg := strings.TrimSpace(string(data)); msg != "" && len(msg) <= 200 {
			rpcErr.Message = msg
		}
		return rpcErr
	}
	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.Result == nil || len(env.Result.Data) == 0 {
		return errors.New("decode response: missing result")
	}
	if err := json.Unmarshal(env.Result.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
