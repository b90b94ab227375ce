package testutil

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestNewFormRequest(t *testing.T) {
	req := NewFormRequest(http.MethodPost, "/api/history/clear", url.Values{"confirm": {"true"}})
	if req.Method != http.MethodPost {
		t.Errorf("method = %s", req.Method)
	}
	if got := req.FormValue("confirm"); got != "true" {
		t.Errorf("FormValue(confirm) = %q, want true", got)
	}
}

func TestServeAndDecode(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"error":"short and stout"}`))
	})
	w := Serve(h, NewFormRequest(http.MethodGet, "/", nil))
	AssertStatusCode(t, w.Code, http.StatusTeapot)
	if msg := JSONError(t, w.Body); msg != "short and stout" {
		t.Errorf("JSONError = %q", msg)
	}

	var v map[string]int
	DecodeJSON(t, strings.NewReader(`{"a":1}`), &v)
	if v["a"] != 1 {
		t.Errorf("decoded %v", v)
	}
}

func TestAssertStatusCode_Matching(t *testing.T) {
	fakeT := &testing.T{}
	AssertStatusCode(fakeT, http.StatusOK, http.StatusOK)
	if fakeT.Failed() {
		t.Error("expected no failure for matching status codes")
	}
}
