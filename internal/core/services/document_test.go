package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/custodia-labs/docmind/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
	"github.com/custodia-labs/docmind/internal/postprocessors/chunker"
)

const testPath = "/docs/report.txt"

func TestDocumentService_ChunkDocument(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	ctx := context.Background()

	res, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(1), Index: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentID(testPath), res.DocumentID)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, domain.StateFullyEmbedded, res.State)
	assert.Equal(t, 3, res.Embedded)
	assert.Zero(t, res.Failed)
	assert.False(t, res.Superseded)

	require.Len(t, res.Chunks, 3)
	for i, want := range []string{"ABCD", "DEFG", "GHIJ"} {
		assert.Equal(t, want, res.Chunks[i].Chunk.Content)
		assert.Equal(t, i, res.Chunks[i].Chunk.Index)
		assert.True(t, res.Chunks[i].Embedded)
	}

	n, err := f.index.Len(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stored, err := f.store.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFullyEmbedded, stored.State)
	assert.Equal(t, uint64(1), stored.Generation)
}

func TestDocumentService_ChunkDocument_Defaults(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "short text")

	res, err := f.docs.ChunkDocument(context.Background(), driving.ChunkRequest{Path: testPath, Index: true})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "short text", res.Chunks[0].Chunk.Content)
}

func TestDocumentService_ChunkDocument_InvalidParameters(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 4, 4},
		{"overlap exceeds size", 4, 5},
		{"zero size", 0, 0},
		{"negative overlap", 4, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.docs.ChunkDocument(context.Background(), driving.ChunkRequest{
				Path: testPath, ChunkSize: intPtr(tt.size), Overlap: intPtr(tt.overlap), Index: true,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)
		})
	}
	assert.Zero(t, f.extractor.callCount(), "parameters are checked before extraction")
}

func TestDocumentService_ChunkDocument_ExtractionError(t *testing.T) {
	f := newFixture(t)

	_, err := f.docs.ChunkDocument(context.Background(), driving.ChunkRequest{Path: "/missing.txt", Index: true})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestDocumentService_ChunkDocument_WithoutIndexing(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	ctx := context.Background()

	res, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateChunked, res.State)
	assert.Zero(t, res.Embedded)
	assert.Zero(t, f.embedder.totalCalls())

	n, err := f.index.Len(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocumentService_ChunkDocument_NoEmbedder(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	docs := NewDocumentService(f.extractor, f.docs.pipelines, f.store, f.index, nil,
		domain.ChunkingSettings{ChunkSize: 4, Overlap: 1})

	_, err := docs.ChunkDocument(context.Background(), driving.ChunkRequest{Path: testPath, Index: true})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	res, err := docs.ChunkDocument(context.Background(), driving.ChunkRequest{Path: testPath})
	require.NoError(t, err)
	assert.Equal(t, domain.StateChunked, res.State)
}

func TestDocumentService_ChunkDocument_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "aaaabbbbccccddddeeee")
	f.embedder.setFail("cccc", errProviderDown)
	ctx := context.Background()
	req := driving.ChunkRequest{Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(0), Index: true}

	res, err := f.docs.ChunkDocument(ctx, req)
	require.NoError(t, err, "a per-chunk provider error must not abort the batch")

	assert.Equal(t, domain.StatePartiallyEmbedded, res.State)
	assert.Equal(t, 4, res.Embedded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Chunks, 5)
	for i, c := range res.Chunks {
		if i == 2 {
			assert.ErrorIs(t, c.Err, domain.ErrProvider)
			assert.False(t, c.Embedded)
			continue
		}
		assert.NoError(t, c.Err)
		assert.True(t, c.Embedded)
	}

	n, err := f.index.Len(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// The next call retries only the failed chunk.
	f.embedder.setFail("cccc", nil)
	res, err = f.docs.ChunkDocument(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFullyEmbedded, res.State)
	assert.Equal(t, 5, res.Embedded)
	assert.Equal(t, 6, f.embedder.totalCalls())
}

func TestDocumentService_ChunkDocument_SharedContentEmbedsOnce(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "abababab")

	res, err := f.docs.ChunkDocument(context.Background(), driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(2), Overlap: intPtr(0), Index: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Embedded)
	assert.Equal(t, 1, f.embedder.callsFor("ab"))
}

func TestDocumentService_ChunkDocument_ReingestRemovesStaleChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := driving.ChunkRequest{Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(0), Index: true}

	f.extractor.set(testPath, "aaaabbbbccccddddeeee")
	first, err := f.docs.ChunkDocument(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.Chunks, 5)

	f.extractor.set(testPath, "zzzzyyyy")
	f.docs.Invalidate(testPath)
	second, err := f.docs.ChunkDocument(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation)
	require.Len(t, second.Chunks, 2)

	n, err := f.index.Len(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, err := f.store.GetChunks(ctx, second.DocumentID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	_, err = f.store.GetChunk(ctx, domain.ChunkID(second.DocumentID, 4))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	results, err := f.search.Search(ctx, "aaaa", domain.SearchOptions{TopK: 10})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "aaaa", r.Content, "stale text must not be returned")
	}

	stored, err := f.store.GetDocument(ctx, second.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Generation)
	assert.False(t, stored.CreatedAt.After(stored.UpdatedAt))
}

func TestDocumentService_ChunkDocument_OlderGenerationIsSuperseded(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	ctx := context.Background()

	release := f.embedder.hold("ABCDE")
	defer release()

	type outcome struct {
		res *domain.IngestResult
		err error
	}
	older := make(chan outcome, 1)
	go func() {
		res, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
			Path: testPath, ChunkSize: intPtr(5), Overlap: intPtr(0), Index: true,
		})
		older <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return f.embedder.callsFor("ABCDE") == 1 }, time.Second, time.Millisecond)

	newer, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(10), Overlap: intPtr(0), Index: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newer.Generation)
	assert.False(t, newer.Superseded)

	release()
	got := <-older
	require.NoError(t, got.err)
	assert.Equal(t, uint64(1), got.res.Generation)
	assert.True(t, got.res.Superseded)

	stored, err := f.store.GetDocument(ctx, newer.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Generation)

	n, err := f.index.Len(ctx, newer.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the superseded generation must not reach the index")
}

func TestDocumentService_ChunkDocument_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	release := f.embedder.hold("ABCDEFGHIJ")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
			Path: testPath, ChunkSize: intPtr(10), Overlap: intPtr(0), Index: true,
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.embedder.callsFor("ABCDEFGHIJ") == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, err := f.store.GetDocument(context.Background(), domain.DocumentID(testPath))
	assert.ErrorIs(t, err, domain.ErrNotFound, "a cancelled call commits nothing")
}

func TestDocumentService_ChunkDocument_DimensionMismatch(t *testing.T) {
	f := newFixtureWithIndex(t, vectormem.New(3))
	f.extractor.set(testPath, "ABCDEFGHIJ")

	_, err := f.docs.ChunkDocument(context.Background(), driving.ChunkRequest{Path: testPath, Index: true})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = f.store.GetDocument(context.Background(), domain.DocumentID(testPath))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_ExtractText(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "one two three")

	ext, err := f.docs.ExtractText(context.Background(), testPath)
	require.NoError(t, err)
	assert.Equal(t, "one two three", ext.Text)
	assert.Equal(t, 3, ext.WordCount)
	assert.Equal(t, 0, ext.Pages)
	assert.Equal(t, "txt", ext.FileType)

	_, err = f.docs.ExtractText(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_GetMetadata(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "one two three")

	meta, err := f.docs.GetMetadata(context.Background(), testPath)
	require.NoError(t, err)
	assert.Equal(t, "report", meta.Title)
	assert.Equal(t, "Ada", meta.Author)
	assert.Equal(t, 3, meta.WordCount)
	assert.Equal(t, int64(13), meta.FileSizeBytes)
	assert.Equal(t, testPath, meta.FilePath)
	assert.Equal(t, "txt", meta.FileType)
}

func TestDocumentService_ExtractIsCached(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "cached")
	ctx := context.Background()

	_, err := f.docs.ExtractText(ctx, testPath)
	require.NoError(t, err)
	_, err = f.docs.GetMetadata(ctx, testPath)
	require.NoError(t, err)
	assert.Equal(t, 1, f.extractor.callCount())

	f.extractor.set(testPath, "changed")
	f.docs.Invalidate(testPath)
	ext, err := f.docs.ExtractText(ctx, testPath)
	require.NoError(t, err)
	assert.Equal(t, "changed", ext.Text)
	assert.Equal(t, 2, f.extractor.callCount())
}

func TestDocumentService_ConcurrentExtractsAreMerged(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "merged")
	gate := make(chan struct{})
	f.extractor.gate = gate

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.docs.ExtractText(context.Background(), testPath)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return f.extractor.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.extractor.callCount())
}

func TestDocumentService_Summarize_Extractive(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "First point. Second point. Third point. Fourth point.")

	sum, err := f.docs.Summarize(context.Background(), testPath, domain.DetailBrief)
	require.NoError(t, err)
	assert.Equal(t, "First point. Second point.", sum.Text)
	assert.Equal(t, domain.SummaryExtractive, sum.Method)
	assert.Equal(t, domain.DetailBrief, sum.Level)
	assert.Equal(t, 8, sum.SourceWordCount)
	assert.Equal(t, "txt", sum.FileType)
}

func TestDocumentService_Summarize_Generated(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "Some text to summarise.")
	llm := &stubLLM{reply: "  A summary.  "}
	f.docs.SetLLMService(llm)

	sum, err := f.docs.Summarize(context.Background(), testPath, domain.DetailStandard)
	require.NoError(t, err)
	assert.Equal(t, "A summary.", sum.Text)
	assert.Equal(t, domain.SummaryGenerated, sum.Method)
	assert.Equal(t, "Summarize the following document in a standard manner:\n\nSome text to summarise.", llm.prompt)
	assert.Equal(t, 300, llm.opts.MaxTokens)
}

func TestDocumentService_Summarize_FallsBackOnProviderError(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "Alpha. Beta. Gamma.")
	f.docs.SetLLMService(&stubLLM{err: errProviderDown})

	sum, err := f.docs.Summarize(context.Background(), testPath, domain.DetailBrief)
	require.NoError(t, err)
	assert.Equal(t, domain.SummaryExtractive, sum.Method)
	assert.Equal(t, "Alpha. Beta.", sum.Text)
}

func TestDocumentService_Summarize_UsesIndexedChunks(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	llm := &stubLLM{reply: "ok"}
	f.docs.SetLLMService(llm)
	ctx := context.Background()

	_, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(2), Index: true,
	})
	require.NoError(t, err)

	_, err = f.docs.Summarize(ctx, testPath, domain.DetailBrief)
	require.NoError(t, err)
	assert.Contains(t, llm.prompt, "\n\nABCDEFGHIJ", "overlap must not be repeated")
}

func TestDocumentService_Summarize_InvalidLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.docs.Summarize(context.Background(), testPath, domain.DetailLevel("epic"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_ListGetRemove(t *testing.T) {
	f := newFixture(t)
	f.extractor.set(testPath, "ABCDEFGHIJ")
	ctx := context.Background()

	res, err := f.docs.ChunkDocument(ctx, driving.ChunkRequest{
		Path: testPath, ChunkSize: intPtr(4), Overlap: intPtr(1), Index: true,
	})
	require.NoError(t, err)

	infos, err := f.docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, res.DocumentID, infos[0].ID)
	assert.Equal(t, testPath, infos[0].URI)
	assert.Equal(t, "report", infos[0].Title)
	assert.Equal(t, 3, infos[0].ChunkCount)
	assert.Equal(t, domain.StateFullyEmbedded, infos[0].State)

	doc, err := f.docs.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", doc.Content)

	require.NoError(t, f.docs.RemoveDocument(ctx, res.DocumentID))

	n, err := f.index.Len(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.docs.GetDocument(ctx, res.DocumentID)
	assert.ErrorIs(t, err, domain.ErrUnknownDocument)

	err = f.docs.RemoveDocument(ctx, res.DocumentID)
	assert.ErrorIs(t, err, domain.ErrUnknownDocument)
}

func TestJoinChunks(t *testing.T) {
	chunks, err := chunker.Split("d", "ABCDEFGHIJ", 4, 1)
	require.NoError(t, err)

	assert.Equal(t, "ABCDEFGHIJ", joinChunks(chunks, 100))
	assert.Equal(t, "ABCDE", joinChunks(chunks, 5))
	assert.Equal(t, "", joinChunks(nil, 5))
}

func TestExtractiveSummary(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want string
	}{
		{"One. Two. Three.", 2, "One. Two."},
		{"One. Two. Three.", 10, "One. Two. Three."},
		{"No full stop", 2, "No full stop."},
		{"Is it good? Yes it is!", 2, "Is it good? Yes it is!"},
		{"Really? Yes. More later", 1, "Really? Yes."},
		{"   ", 2, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractiveSummary(tt.text, tt.n), tt.text)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var mu sync.Mutex
	inside := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("doc")
			defer unlock()

			mu.Lock()
			inside++
			assert.Equal(t, 1, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Zero(t, k.size())

	a := k.Lock("a")
	b := k.Lock("b")
	assert.Equal(t, 2, k.size())
	a()
	b()
	assert.Zero(t, k.size())
}
