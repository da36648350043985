// Package config loads service configuration from a YAML file, an optional
// .env file, and the process environment, in that order of precedence
// (environment wins). Environment variables map onto nested keys by splitting
// on underscores, so ASSEMBLYAI_API_KEY fills assemblyai.api_key.
//
//	var cfg app.Config
//	if err := config.LoadConfig("transcribe", &cfg); err != nil { ... }
package config
