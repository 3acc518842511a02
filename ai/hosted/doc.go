// Package hosted provides an embedding client for the hosted OpenAI API
// built on github.com/sashabaranov/go-openai.
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithModel("text-embedding-3-small"),
//	)
//	provider, err := hosted.NewProvider(config)
package hosted
