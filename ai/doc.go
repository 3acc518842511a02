// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides the embedding services used by citare.
//
// The package defines the Embedder and AIProvider interfaces and the
// Generator that sits in front of them. The Generator never fails: when the
// provider errors, returns an empty vector, or is not configured at all, it
// falls back to a deterministic pseudo-random vector tagged with
// core.MockModelTag so the record can be found and re-embedded later.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo client for OpenAI-compatible hosts (Ollama, vLLM, LocalAI)
//   - ai/hosted: go-openai client for the hosted OpenAI API
//   - ai/providers: builds one of the above from a Config
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, hosted.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder) return
// CONCRETE types so tests can inject behavior and check call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("nomic-embed-text"), ai.WithDimensions(768))
//	provider, err := providers.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	gen, err := ai.NewGenerator(
//	    ai.WithEmbedder(provider.Embedder()),
//	    ai.WithVectorDimensions(cfg.Dimensions),
//	)
//	emb := gen.Generate(ctx, "Controllers must report breaches within 72 hours.")
//	if emb.Fallback {
//	    // provider was unavailable; emb.Model == core.MockModelTag
//	}
package ai
