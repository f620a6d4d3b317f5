package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/shopwish-backend/internal/webhooks"
)

func TestRequireShopAttachesShop(t *testing.T) {
	var got string
	handler := RequireShop(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ShopFromContext(r.Context())
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/wishlist/w1?shop=Demo.MyShopify.com", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != "demo.myshopify.com" {
		t.Fatalf("expected normalized shop, got %q", got)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/wishlist/w1?shop=not%20a%20domain", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed shop, got %d", resp.Code)
	}
}

func TestVerifyShopifyWebhookRestoresBody(t *testing.T) {
	body := []byte(`{"id":1}`)
	var seen []byte
	handler := VerifyShopifyWebhook("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		if ShopFromContext(r.Context()) != "demo.myshopify.com" {
			t.Errorf("shop missing from context")
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/products/update", bytes.NewReader(body))
	req.Header.Set(HeaderShopDomain, "demo.myshopify.com")
	req.Header.Set(HeaderHmac, webhooks.Sign("secret", body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !bytes.Equal(seen, body) {
		t.Fatalf("handler saw %q", seen)
	}
}

func TestVerifyShopifyWebhookSkipsHmacWithoutSecret(t *testing.T) {
	handler := VerifyShopifyWebhook("", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/app/uninstalled", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(HeaderShopDomain, "demo.myshopify.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRequireBearer(t *testing.T) {
	handler := RequireBearer("token", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cases := map[string]int{
		"":             http.StatusUnauthorized,
		"Bearer wrong": http.StatusUnauthorized,
		"token":        http.StatusUnauthorized,
		"Bearer token": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/scheduled/demo.myshopify.com", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("header %q: expected %d got %d", header, want, resp.Code)
		}
	}
}
