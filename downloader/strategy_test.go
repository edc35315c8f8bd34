package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boxfetch/internal"
	"boxfetch/utils"
)

// fakeStrategy returns a scripted result and records whether it ran
type fakeStrategy struct {
	name   string
	result AttemptResult
	called bool
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) AttemptResult {
	f.called = true
	return f.result
}

func successResult(content string) AttemptResult {
	return AttemptResult{
		Tag:    internal.AttemptSuccess,
		Body:   io.NopCloser(strings.NewReader(content)),
		Length: int64(len(content)),
	}
}

func testLink() *internal.SharedLink {
	return &internal.SharedLink{
		RawURL:     "https://app.box.com/s/abc123",
		Subdomain:  "app",
		SharedName: "abc123",
		Kind:       internal.KindUnknown,
	}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	first := &fakeStrategy{name: "first", result: failure(internal.AttemptAuthRequired, "needs auth")}
	second := &fakeStrategy{name: "second", result: successResult("payload")}
	third := &fakeStrategy{name: "third", result: successResult("unreachable")}

	chain := NewStrategyChainWith(first, second, third)
	stream, err := chain.Acquire(context.Background(), testLink(), &internal.Credentials{})
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	defer stream.Body.Close()

	if !first.called || !second.called {
		t.Error("expected first and second strategies to run")
	}
	if third.called {
		t.Error("third strategy ran after an earlier success")
	}
	if stream.Length != int64(len("payload")) {
		t.Errorf("length = %d, want %d", stream.Length, len("payload"))
	}

	data, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("body = %q, want %q", data, "payload")
	}
}

func TestChainFallsThroughOnEveryFailureTag(t *testing.T) {
	tags := []internal.AttemptTag{
		internal.AttemptAuthRequired,
		internal.AttemptNotFound,
		internal.AttemptTransient,
	}

	for _, tag := range tags {
		t.Run(tag.String(), func(t *testing.T) {
			first := &fakeStrategy{name: "first", result: failure(tag, "failed")}
			second := &fakeStrategy{name: "second", result: successResult("data")}

			chain := NewStrategyChainWith(first, second)
			stream, err := chain.Acquire(context.Background(), testLink(), &internal.Credentials{})
			if err != nil {
				t.Fatalf("Acquire returned error after %s: %v", tag, err)
			}
			stream.Body.Close()

			if !second.called {
				t.Errorf("second strategy did not run after %s", tag)
			}
		})
	}
}

func TestChainExhaustionCarriesLastReason(t *testing.T) {
	first := &fakeStrategy{name: "first", result: failure(internal.AttemptAuthRequired, "token rejected")}
	second := &fakeStrategy{name: "second", result: failure(internal.AttemptTransient, "rate limited by server")}

	chain := NewStrategyChainWith(first, second)
	_, err := chain.Acquire(context.Background(), testLink(), &internal.Credentials{})
	if err == nil {
		t.Fatal("Acquire succeeded, want AllMethodsFailed")
	}

	if !internal.IsType(err, internal.ErrAllMethodsFailed) {
		t.Fatalf("error type = %v, want AllMethodsFailed", err)
	}
	if !strings.Contains(err.Error(), "rate limited by server") {
		t.Errorf("error %q does not carry the last strategy's reason", err.Error())
	}
	if !strings.Contains(err.Error(), "second") {
		t.Errorf("error %q does not name the last strategy", err.Error())
	}
}

func TestChainHonorsCancelledContext(t *testing.T) {
	strategy := &fakeStrategy{name: "first", result: successResult("data")}
	chain := NewStrategyChainWith(strategy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Acquire(ctx, testLink(), &internal.Credentials{})
	if err == nil {
		t.Fatal("Acquire succeeded with cancelled context")
	}
	if !internal.IsType(err, internal.ErrCancelled) {
		t.Errorf("error type = %v, want Cancelled", err)
	}
	if strategy.called {
		t.Error("strategy ran despite cancelled context")
	}
}

func TestDirectStrategyRequiresIdentifiers(t *testing.T) {
	strategy := NewDirectSharedFileStrategy(utils.NewHTTPClient())

	link := testLink() // shared name but no file id
	result := strategy.Attempt(context.Background(), link, &internal.Credentials{})
	if result.Tag != internal.AttemptTransient {
		t.Errorf("tag = %v, want TransientFailure", result.Tag)
	}
}

func TestAuthenticatedStrategyRequiresToken(t *testing.T) {
	strategy := NewAuthenticatedAPIStrategy(utils.NewHTTPClient())

	result := strategy.Attempt(context.Background(), testLink(), &internal.Credentials{})
	if result.Tag != internal.AttemptAuthRequired {
		t.Errorf("tag = %v, want AuthRequired", result.Tag)
	}
}

func TestFetchDirectClassifiesResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantTag     internal.AttemptTag
	}{
		{"binary success", http.StatusOK, "application/octet-stream", "file-bytes", internal.AttemptSuccess},
		{"html page means auth wall", http.StatusOK, "text/html; charset=utf-8", "<html>login</html>", internal.AttemptAuthRequired},
		{"unauthorized", http.StatusUnauthorized, "application/json", "{}", internal.AttemptAuthRequired},
		{"forbidden", http.StatusForbidden, "application/json", "{}", internal.AttemptAuthRequired},
		{"not found", http.StatusNotFound, "application/json", "{}", internal.AttemptNotFound},
		{"server error", http.StatusInternalServerError, "text/plain", "oops", internal.AttemptTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result := fetchDirect(context.Background(), utils.NewHTTPClient(), server.URL, &internal.Credentials{})
			if result.Tag != tt.wantTag {
				t.Errorf("tag = %v, want %v", result.Tag, tt.wantTag)
			}

			if result.Tag == internal.AttemptSuccess {
				data, err := io.ReadAll(result.Body)
				result.Body.Close()
				if err != nil {
					t.Fatalf("reading body failed: %v", err)
				}
				if string(data) != tt.body {
					t.Errorf("body = %q, want %q", data, tt.body)
				}
			}
		})
	}
}

func TestFetchDirectSendsPasswordCookie(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	creds := &internal.Credentials{Password: "s3cret"}
	result := fetchDirect(context.Background(), utils.NewHTTPClient(), server.URL, creds)
	if result.Tag != internal.AttemptSuccess {
		t.Fatalf("tag = %v, want Success", result.Tag)
	}
	result.Body.Close()

	if !strings.Contains(gotCookie, "box_shared_link_password=s3cret") {
		t.Errorf("cookie header = %q, want the shared link password cookie", gotCookie)
	}
}

func TestAuthenticatedStrategyAgainstServer(t *testing.T) {
	const content = "api-file-bytes"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/123456/content" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.Contains(r.Header.Get("Boxapi"), "shared_link=") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(content))
	}))
	defer server.Close()

	strategy := NewAuthenticatedAPIStrategy(utils.NewHTTPClient())
	strategy.apiBase = server.URL

	link := testLink()
	link.FileID = "123456"
	link.Kind = internal.KindFile

	result := strategy.Attempt(context.Background(), link, &internal.Credentials{AccessToken: "test-token"})
	if result.Tag != internal.AttemptSuccess {
		t.Fatalf("tag = %v (%s), want Success", result.Tag, result.Reason)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	if string(data) != content {
		t.Errorf("body = %q, want %q", data, content)
	}
}

func TestAuthenticatedStrategyResolvesSharedItem(t *testing.T) {
	const content = "resolved-file"

	mux := http.NewServeMux()
	mux.HandleFunc("/shared_items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"file","id":"777","name":"doc.pdf"}`))
	})
	mux.HandleFunc("/files/777/content", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(content))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := NewAuthenticatedAPIStrategy(utils.NewHTTPClient())
	strategy.apiBase = server.URL

	result := strategy.Attempt(context.Background(), testLink(), &internal.Credentials{AccessToken: "test-token"})
	if result.Tag != internal.AttemptSuccess {
		t.Fatalf("tag = %v (%s), want Success", result.Tag, result.Reason)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	if string(data) != content {
		t.Errorf("body = %q, want %q", data, content)
	}
}
