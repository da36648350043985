// Package provider is the small framework every swappable backend in the
// service plugs into: transcription providers, summarization models, and
// session state stores.
//
// A backend implements Provider (a name and an availability check) and is
// registered by name in a Registry through a Factory, so configuration picks
// the backend. One-shot backends implement RequestResponse[I, O] and can be
// wrapped with Middleware:
//
//	completer = provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("transcribe"),
//	)(completer)
//
// ContextStore[C] persists per-key state with a TTL. MemoryStore is the
// in-process implementation; redis.TypedStore is the shared one.
package provider
