package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestParseJSONOrError(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"admin"}`))
		w := httptest.NewRecorder()

		var dest struct {
			Username string `json:"username"`
		}
		if !ParseJSONOrError(w, req, &dest) {
			t.Fatal("expected parse to succeed")
		}
		if dest.Username != "admin" {
			t.Errorf("got %q", dest.Username)
		}
	})

	t.Run("malformed body writes 400 envelope", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":`))
		w := httptest.NewRecorder()

		var dest map[string]interface{}
		if ParseJSONOrError(w, req, &dest) {
			t.Fatal("expected parse to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestParseAndValidate(t *testing.T) {
	type loginReq struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	t.Run("missing required field", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"admin"}`))
		w := httptest.NewRecorder()

		var dest loginReq
		if ParseAndValidate(w, req, &dest) {
			t.Fatal("expected validation to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("all fields present", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"admin","password":"admin123"}`))
		w := httptest.NewRecorder()

		var dest loginReq
		if !ParseAndValidate(w, req, &dest) {
			t.Fatal("expected validation to pass")
		}
	})
}

func TestParsePathInt64(t *testing.T) {
	router := mux.NewRouter()
	var got int64
	var ok bool
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = ParsePathInt64OrError(w, r, "id")
	})

	t.Run("valid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/items/42", nil))
		if !ok || got != 42 {
			t.Errorf("expected 42, got %d ok=%v", got, ok)
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/items/abc", nil))
		if ok {
			t.Error("expected failure for non-numeric id")
		}
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query    string
		wantNum  int
		wantSize int
	}{
		{"", 1, 10},
		{"?pageNum=3&pageSize=25", 3, 25},
		{"?pageNum=0&pageSize=-1", 1, 10},
		{"?pageSize=10000", 1, 200},
		{"?pageNum=abc", 1, 10},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/page"+tc.query, nil)
		num, size := ParsePage(req)
		if num != tc.wantNum || size != tc.wantSize {
			t.Errorf("ParsePage(%q) = (%d,%d), want (%d,%d)", tc.query, num, size, tc.wantNum, tc.wantSize)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.50:54321"
	if got := ClientIP(req); got != "192.168.1.50" {
		t.Errorf("expected socket peer host, got %q", got)
	}

	req.Header.Set("X-Real-IP", "10.9.8.7")
	if got := ClientIP(req); got != "10.9.8.7" {
		t.Errorf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Errorf("expected first forwarded address, got %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := BearerToken(req); got != "" {
		t.Errorf("expected empty token without header, got %q", got)
	}

	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	if got := BearerToken(req); got != "" {
		t.Errorf("non-bearer scheme must yield empty token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := BearerToken(req); got != "abc.def.ghi" {
		t.Errorf("unexpected token %q", got)
	}
}
