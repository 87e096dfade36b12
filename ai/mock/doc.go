// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic unit vectors derived from a hash of the
// input text, so identical text always embeds identically and a query equal
// to an indexed chunk ranks that chunk first. MockImageDescriber returns a
// deterministic description derived from the image bytes.
//
// Both mocks are safe for concurrent use and count calls atomically. Behavior
// is overridden by setting the ...Func fields before the mock is shared:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("rate limited")
//	}
package mock
