// Package storage archives finished transcripts in an object store.
//
// Backends register a Factory under a provider name:
//
//   - storage/local: a directory on disk, the default
//   - storage/s3: Amazon S3 or an S3-compatible endpoint
//
// Configuration:
//
//	storage:
//	  enabled: true
//	  provider: s3
//	  bucket: transcripts
//	  region: eu-west-1
package storage
