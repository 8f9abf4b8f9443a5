package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// buildPDF 生成只有一页文本的最小 PDF
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 700 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type fakeRetriever struct {
	calls   atomic.Int32
	content string
	err     error
}

func (f *fakeRetriever) Content(ctx context.Context, url string) (string, error) {
	f.calls.Add(1)
	return f.content, f.err
}

var allPaths = Toggles{Retriever: true, Readability: true}

func TestProcessPDF(t *testing.T) {
	doc := buildPDF("Lithium battery transport rules apply to air cargo")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	retriever := &fakeRetriever{content: "unused"}
	f := New(retriever, Options{})
	got := f.Process(context.Background(), model.SearchCandidate{Title: "Guide", URL: srv.URL + "/guide.pdf"}, []string{"lithium", "transport"}, allPaths)

	require.NotNil(t, got)
	assert.Equal(t, model.SourcePDF, got.Type)
	assert.Equal(t, "Guide", got.Title)
	assert.Contains(t, got.Content, "transport rules")
	assert.Equal(t, int32(0), retriever.calls.Load())
}

func TestProcessPDFContentTypeMismatchFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	retriever := &fakeRetriever{content: "  summary from retriever  "}
	f := New(retriever, Options{})
	got := f.Process(context.Background(), model.SearchCandidate{URL: srv.URL + "/doc.PDF?x=1"}, []string{"x"}, allPaths)

	require.NotNil(t, got)
	assert.Equal(t, model.SourceWeb, got.Type)
	assert.Equal(t, "summary from retriever", got.Content)
	assert.Equal(t, srv.URL+"/doc.PDF?x=1", got.Title, "title falls back to url")
}

func TestProcessRetrieverTruncated(t *testing.T) {
	f := New(&fakeRetriever{content: strings.Repeat("a", 100)}, Options{WebChars: 10})
	got := f.Process(context.Background(), model.SearchCandidate{Title: "t", URL: "https://example.org/page"}, nil, Toggles{Retriever: true})
	require.NotNil(t, got)
	assert.Len(t, got.Content, 10)
}

func TestProcessAllPathsFail(t *testing.T) {
	f := New(&fakeRetriever{err: errors.New("boom")}, Options{})
	got := f.Process(context.Background(), model.SearchCandidate{Title: "t", URL: "https://example.org/page"}, nil, Toggles{Retriever: true})
	assert.Nil(t, got)

	// 没有任何路径开启
	got = New(nil, Options{}).Process(context.Background(), model.SearchCandidate{URL: "https://example.org"}, nil, Toggles{Retriever: true})
	assert.Nil(t, got)
}

func TestProcessReadabilityFallback(t *testing.T) {
	para := strings.Repeat("The agency published revised guidance on lithium battery shipments for manufacturers. ", 12)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>Notice</title></head><body><article><h1>Notice</h1><p>%s</p><p>%s</p></article></body></html>", para, para)
	}))
	defer srv.Close()

	retriever := &fakeRetriever{err: errors.New("no content")}
	f := New(retriever, Options{})
	got := f.Process(context.Background(), model.SearchCandidate{Title: "Notice", URL: srv.URL + "/notice"}, nil, allPaths)

	require.NotNil(t, got)
	assert.Equal(t, model.SourceWeb, got.Type)
	assert.Contains(t, got.Content, "revised guidance")
	assert.Equal(t, int32(1), retriever.calls.Load())
}

func TestProcessTimeoutDropsCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := New(nil, Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	got := f.Process(context.Background(), model.SearchCandidate{URL: srv.URL + "/slow.pdf"}, []string{"x"}, Toggles{Readability: true})
	assert.Nil(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProcessReadTimeoutBoundsPageFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := New(nil, Options{Timeout: 5 * time.Second, ReadTimeout: 50 * time.Millisecond})
	start := time.Now()
	got := f.Process(context.Background(), model.SearchCandidate{URL: srv.URL + "/page"}, nil, Toggles{Readability: true})
	assert.Nil(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsDocumentURL(t *testing.T) {
	assert.True(t, IsDocumentURL("https://fda.gov/files/guide.pdf"))
	assert.True(t, IsDocumentURL("https://fda.gov/files/GUIDE.PDF?download=1"))
	assert.False(t, IsDocumentURL("https://fda.gov/pdf/index.html"))
	assert.False(t, IsDocumentURL("https://fda.gov/news"))
}

func TestPDFTextGarbage(t *testing.T) {
	_, err := PDFText([]byte("not a pdf at all"))
	assert.Error(t, err)
}
