package abstractcluster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
)

type fakeEmbedder struct {
	batches [][]string
	short   bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.batches = append(f.batches, texts)
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	if f.short {
		return out[:len(out)-1], nil
	}
	return out, nil
}

func TestEmbedCorpus(t *testing.T) {
	store := openTestStore(t)
	docs := Corpus{
		{DocID: "d1", Title: "Heat", Abstract: "Urban heat."},
		{DocID: "d2", Abstract: "Tree canopy."},
		{DocID: "d3", Abstract: "Bus ridership."},
	}
	for _, d := range docs {
		if err := store.SaveDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	embedder := &fakeEmbedder{}
	if err := embedCorpus(context.Background(), store, embedder, docs, 2); err != nil {
		t.Fatal(err)
	}
	if len(embedder.batches) != 2 || len(embedder.batches[0]) != 2 || len(embedder.batches[1]) != 1 {
		t.Fatalf("unexpected batches %v", embedder.batches)
	}
	if embedder.batches[0][0] != "Heat. Urban heat." {
		t.Fatalf("unexpected embedding text %q", embedder.batches[0][0])
	}

	corpus, err := store.LoadCorpus()
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus) != 3 || corpus[1].Embedding[0] != float64(len("Tree canopy.")) {
		t.Fatalf("unexpected stored corpus %+v", corpus)
	}
	pending, err := store.PendingDocuments()
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending documents, got %d, %v", len(pending), err)
	}
}

func TestEmbedCorpusShortResponse(t *testing.T) {
	store := openTestStore(t)
	docs := Corpus{{DocID: "d1", Abstract: "One."}, {DocID: "d2", Abstract: "Two."}}
	for _, d := range docs {
		if err := store.SaveDocument(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := embedCorpus(context.Background(), store, &fakeEmbedder{short: true}, docs, 10); err == nil {
		t.Fatal("expected error when the embedder drops vectors")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Fatalf("parseRetryAfter(7) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("parseRetryAfter(\"\") = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("parseRetryAfter(soon) = %v", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(time.RFC1123)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Fatalf("parseRetryAfter(%s) = %v", future, got)
	}
}

func rateLimitError(retryAfter string) error {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	if retryAfter != "" {
		resp.Header.Set("Retry-After", retryAfter)
	}
	return &openai.Error{
		StatusCode: http.StatusTooManyRequests,
		Request:    httptest.NewRequest(http.MethodPost, "/v1/embeddings", nil),
		Response:   resp,
	}
}

func TestRateLimitDelay(t *testing.T) {
	p := defaultRetryPolicy
	if d, ok := p.rateLimitDelay(rateLimitError("7"), 0); !ok || d != 7*time.Second {
		t.Fatalf("delay = %v, %v", d, ok)
	}
	if d, ok := p.rateLimitDelay(rateLimitError(""), 2); !ok || d != 20*time.Second {
		t.Fatalf("backoff delay = %v, %v", d, ok)
	}
	if d, ok := p.rateLimitDelay(rateLimitError("600"), 0); !ok || d != p.MaxDelay {
		t.Fatalf("delay must be capped, got %v", d)
	}
	if _, ok := p.rateLimitDelay(errors.New("boom"), 0); ok {
		t.Fatal("plain errors are not rate limits")
	}
}

func TestWithRetry(t *testing.T) {
	p := retryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return rateLimitError("")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got %v after %d calls", err, calls)
	}

	calls = 0
	err = p.withRetry(context.Background(), func() error {
		calls++
		return rateLimitError("")
	})
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || calls != 3 {
		t.Fatalf("expected wrapped rate limit after 3 calls, got %v after %d calls", err, calls)
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Fatalf("unexpected error %v", err)
	}

	calls = 0
	boom := errors.New("boom")
	if err := p.withRetry(context.Background(), func() error { calls++; return boom }); !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("non rate limit errors must not be retried: %v after %d calls", err, calls)
	}
}

func TestWithRetryCancelled(t *testing.T) {
	p := retryPolicy{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.withRetry(ctx, func() error { return rateLimitError("") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
