package server

import (
	"net/http"
	"strings"
	"testing"

	"blueprint/internal/api"
	"blueprint/internal/asset"
)

func objectKey(t *testing.T, objectURL string) string {
	t.Helper()
	idx := strings.LastIndex(objectURL, "/")
	if !strings.HasPrefix(objectURL, "blob:") || idx < 0 {
		t.Fatalf("unexpected object url %q", objectURL)
	}
	return objectURL[idx+1:]
}

func TestResolutionServesInternalAsset(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.doRaw(t, http.MethodPut, "/v1/assets/logo-1", []byte("png-bytes")), http.StatusOK)

	w := ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: asset.InternalReference(asset.PrefixLogo, "1")})
	expectStatus(t, w, http.StatusCreated)
	created := decodeResponse[api.ResolutionResponse](t, w)
	if created.ID == "" || created.Ref != "internal:logo-1" {
		t.Fatalf("unexpected resolution: %#v", created)
	}

	w = ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID+"?wait=true", nil)
	expectStatus(t, w, http.StatusOK)
	resolved := decodeResponse[api.ResolutionResponse](t, w)
	if resolved.Phase != "resolved" || resolved.IsLoading || resolved.Error != "" {
		t.Fatalf("expected resolved view, got %#v", resolved)
	}

	key := objectKey(t, resolved.ObjectURL)
	w = ts.do(t, http.MethodGet, "/v1/objects/"+key, nil)
	expectStatus(t, w, http.StatusOK)
	if w.Body.String() != "png-bytes" {
		t.Fatalf("unexpected object bytes %q", w.Body.String())
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/resolutions/"+created.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodGet, "/v1/objects/"+key, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID, nil), http.StatusNotFound)
}

func TestResolutionRepointRevokesPreviousURL(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.doRaw(t, http.MethodPut, "/v1/assets/a", []byte("A")), http.StatusOK)
	expectStatus(t, ts.doRaw(t, http.MethodPut, "/v1/assets/b", []byte("B")), http.StatusOK)

	created := decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: "internal:a"}))
	first := decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID+"?wait=true", nil))

	w := ts.do(t, http.MethodPut, "/v1/resolutions/"+created.ID, api.ResolutionRequest{Ref: "internal:b"})
	expectStatus(t, w, http.StatusOK)
	second := decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID+"?wait=true", nil))
	if second.ObjectURL == "" || second.ObjectURL == first.ObjectURL {
		t.Fatalf("expected a new object url, got %#v", second)
	}
	expectStatus(t, ts.do(t, http.MethodGet, "/v1/objects/"+objectKey(t, first.ObjectURL), nil), http.StatusNotFound)
	if ts.srv.objects.Live() != 1 {
		t.Fatalf("expected one live object url, got %d", ts.srv.objects.Live())
	}
}

func TestResolutionMissingAssetRetryBudget(t *testing.T) {
	ts := newTestServer(t)

	created := decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: "internal:missing"}))
	view := decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID+"?wait=true", nil))
	if view.Phase != "failed" || view.Error != asset.ErrMsgNotFound || !view.CanRetry || view.Attempt != 0 {
		t.Fatalf("expected retryable not-found failure, got %#v", view)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		w := ts.do(t, http.MethodPost, "/v1/resolutions/"+created.ID+"/retry", nil)
		expectStatus(t, w, http.StatusOK)
		view = decodeResponse[api.ResolutionResponse](t, ts.do(t, http.MethodGet, "/v1/resolutions/"+created.ID+"?wait=true", nil))
		if view.Attempt != attempt || view.Phase != "failed" {
			t.Fatalf("attempt %d: unexpected view %#v", attempt, view)
		}
	}
	if view.CanRetry {
		t.Fatalf("retry budget should be spent: %#v", view)
	}

	w := ts.do(t, http.MethodPost, "/v1/resolutions/"+created.ID+"/retry", nil)
	expectStatus(t, w, http.StatusConflict)
	if got := decodeResponse[api.ErrorResponse](t, w); got.ErrorCode != ErrCodeRetryUnavailable {
		t.Fatalf("expected retry unavailable code, got %#v", got)
	}
}

func TestResolutionPassthroughReference(t *testing.T) {
	ts := newTestServer(t)
	ref := "https://cdn.example.com/logo.png"

	w := ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: ref})
	expectStatus(t, w, http.StatusCreated)
	view := decodeResponse[api.ResolutionResponse](t, w)
	if view.Phase != "resolved" || view.ObjectURL != ref || view.IsLoading {
		t.Fatalf("expected passthrough, got %#v", view)
	}
	if ts.srv.objects.Live() != 0 {
		t.Fatal("passthrough must not create object urls")
	}
}

func TestResolutionUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPut, "/v1/resolutions/nope", api.ResolutionRequest{Ref: "internal:a"})
	expectStatus(t, w, http.StatusNotFound)
	if got := decodeResponse[api.ErrorResponse](t, w); got.ErrorCode != ErrCodeResolutionNotFound {
		t.Fatalf("expected resolution not found code, got %#v", got)
	}
	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/resolutions/nope", nil), http.StatusNotFound)
}

func TestResolutionInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	w := ts.doRaw(t, http.MethodPost, "/v1/resolutions", []byte("{"))
	expectStatus(t, w, http.StatusBadRequest)
	if got := decodeResponse[api.ErrorResponse](t, w); got.ErrorCode != ErrCodeInvalidJSON {
		t.Fatalf("expected invalid json code, got %#v", got)
	}
}

func TestResolutionSessionLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.resolutions.max = 1
	expectStatus(t, ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: ""}), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/v1/resolutions", api.ResolutionRequest{Ref: ""}), http.StatusTooManyRequests)
}
