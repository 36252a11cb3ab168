// Package labels provides consistent labeling for cloud resources.
//
// All labels use the lambda.io domain prefix and follow a builder pattern
// for constructing label sets with cluster id, role and manager
// identification. Providers without label support map them to metadata.
package labels
