package server

import (
	"net/http"
	"strings"
	"testing"

	"blueprint/internal/api"
)

func TestAssetLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doRaw(t, http.MethodPut, "/v1/assets/logo-1", []byte("first"))
	expectStatus(t, w, http.StatusOK)
	saved := decodeResponse[api.AssetResponse](t, w)
	if saved.ID != "logo-1" || saved.SizeBytes != 5 {
		t.Fatalf("unexpected save response: %#v", saved)
	}

	// Saving again overwrites.
	expectStatus(t, ts.doRaw(t, http.MethodPut, "/v1/assets/logo-1", []byte("second!")), http.StatusOK)

	w = ts.do(t, http.MethodGet, "/v1/assets/logo-1", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Body.String() != "second!" {
		t.Fatalf("expected overwritten bytes, got %q", w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/v1/assets", nil)
	expectStatus(t, w, http.StatusOK)
	list := decodeResponse[[]api.AssetResponse](t, w)
	if len(list) != 1 || list[0].ID != "logo-1" || list[0].SizeBytes != 7 {
		t.Fatalf("unexpected asset list: %#v", list)
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/assets/logo-1", nil), http.StatusNoContent)
	// Deleting a missing asset is not an error.
	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/assets/logo-1", nil), http.StatusNoContent)

	w = ts.do(t, http.MethodGet, "/v1/assets/logo-1", nil)
	expectStatus(t, w, http.StatusNotFound)
	errResp := decodeResponse[api.ErrorResponse](t, w)
	if errResp.ErrorCode != ErrCodeAssetNotFound {
		t.Fatalf("expected asset not found code, got %#v", errResp)
	}
}

func TestPutAssetEmptyPayload(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.doRaw(t, http.MethodPut, "/v1/assets/empty", nil), http.StatusOK)

	w := ts.do(t, http.MethodGet, "/v1/assets/empty", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}

func TestPutAssetTooLarge(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.maxUpload = 8

	w := ts.doRaw(t, http.MethodPut, "/v1/assets/big", []byte(strings.Repeat("x", 9)))
	expectStatus(t, w, http.StatusBadRequest)
	if got := decodeResponse[api.ErrorResponse](t, w); got.ErrorCode != ErrCodeRequestTooLarge {
		t.Fatalf("expected request too large code, got %#v", got)
	}
}

func TestGetObjectUnknownKey(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/objects/not-a-key", nil)
	expectStatus(t, w, http.StatusNotFound)
	if got := decodeResponse[api.ErrorResponse](t, w); got.ErrorCode != ErrCodeObjectNotFound {
		t.Fatalf("expected object not found code, got %#v", got)
	}
}
