// Package llm is a small, provider-agnostic completion client.
//
// An Adapter pairs the shared REST client with a Dialect that maps
// CompletionRequest and CompletionResponse to one provider's JSON shapes.
// Dialects register themselves by name from their own packages:
//
//	import _ "github.com/kbukum/transcribe/llm/anthropic"
//
//	a, err := llm.New(llm.Config{Dialect: "anthropic", APIKey: key, Model: "claude-3-5-sonnet-latest"})
//	text, err := llm.Complete(ctx, a, "", "Summarize this")
//
// Backends that ship their own SDK, such as llm/openai, implement the same
// provider.RequestResponse contract directly.
package llm
