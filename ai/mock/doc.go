// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	// Default deterministic behavior
//	mockEmbedder := mock.NewMockEmbedder()
//
//	// Inject a failure to exercise the fallback path
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockProvider: Wraps a MockEmbedder
package mock
