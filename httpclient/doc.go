// Package httpclient is the outbound HTTP layer used by the provider
// adapters. It resolves paths against a base URL, applies authentication,
// classifies non-2xx responses into typed errors, and can sit behind a
// circuit breaker. It never retries: callers that want another attempt
// decide that themselves.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.assemblyai.com",
//	    Auth:    httpclient.APIKeyAuthHeader(key, "authorization"),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/v2/upload", Body: file})
package httpclient
