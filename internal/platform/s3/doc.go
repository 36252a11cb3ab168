// Package s3 stores cluster key material in an S3-compatible bucket.
//
// Objects are addressed relative to a fixed bucket and optional key prefix.
// When a custom endpoint is configured, path-style addressing is used so
// that self-hosted object stores work without wildcard DNS.
package s3
