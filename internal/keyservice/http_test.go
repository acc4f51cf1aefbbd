package keyservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bekirdag/keydash/internal/keyservice"
)

func TestHTTPService_ListKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/trpc/key.list" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":{"data":[
			{"id":"k_1","start":"unkey_ab","createdAt":"2024-01-02T03:04:05Z","expires":null,"ownerId":"user_7","name":null,
			 "ratelimitType":"fast","ratelimitLimit":10,"ratelimitRefillRate":5,"ratelimitRefillInterval":1000,"remainingRequests":1234}
		]}}`))
	}))
	defer srv.Close()

	svc, err := keyservice.NewHTTPService(srv.URL+"/trpc", "", nil)
	if err != nil {
		t.Fatalf("NewHTTPService: %v", err)
	}
	keys, err := svc.ListKeys(context.Background())
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	k := keys[0]
	if k.ID != "k_1" || k.Start != "unkey_ab" {
		t.Errorf("unexpected key %+v", k)
	}
	if k.Expires != nil || k.Name != nil {
		t.Error("null fields should decode as nil")
	}
	if k.OwnerID == nil || *k.OwnerID != "user_7" {
		t.Errorf("owner not decoded: %v", k.OwnerID)
	}
	if k.RemainingRequests == nil || *k.RemainingRequests != 1234 {
		t.Errorf("remaining not decoded: %v", k.RemainingRequests)
	}
}

func TestHTTPService_DeleteKeys(t *testing.T) {
	var got struct {
		KeyIDs []string `json:"keyIds"`
	}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/key.delete" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer root" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":{"data":null}}`))
	}))
	defer srv.Close()

	svc, _ := keyservice.NewHTTPService(srv.URL, "root", srv.Client())
	if err := svc.DeleteKeys(context.Background(), []string{"k_1", "k_2"}); err != nil {
		t.Fatalf("DeleteKeys: %v", err)
	}
	if len(got.KeyIDs) != 2 || got.KeyIDs[0] != "k_1" || got.KeyIDs[1] != "k_2" {
		t.Errorf("unexpected body %+v", got)
	}

	if err := svc.DeleteKeys(context.Background(), nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
	if calls != 1 {
		t.Errorf("empty delete must not call the service, calls=%d", calls)
	}
}

func TestHTTPService_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"key belongs to another workspace"}}`))
	}))
	defer srv.Close()

	svc, _ := keyservice.NewHTTPService(srv.URL, "", nil)
	err := svc.DeleteKeys(context.Background(), []string{"k_1"})
	var rpcErr *keyservice.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T %v", err, err)
	}
	if rpcErr.Code != "FORBIDDEN" || rpcErr.Message != "key belongs to another workspace" || rpcErr.HTTPStatus != http.StatusForbidden {
		t.Errorf("unexpected error %+v", rpcErr)
	}
}

func TestNewHTTPService_RequiresURL(t *testing.T) {
	if _, err := keyservice.NewHTTPService("  ", "", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}
