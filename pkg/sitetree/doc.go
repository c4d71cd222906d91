// Package sitetree provides a reusable library for managing a hierarchical
// collection of publishable content: a site contains categories, categories
// contain content items or nested categories, and content items are leaves.
//
// It exposes a uniform Component contract implemented by both container and
// leaf node kinds, a validation Gate that every mutating or sensitive
// operation must pass before the tree is touched, and a Service interface
// that orchestrates gated mutations with pluggable repository and blob
// storage backends. Implementations of repositories (e.g., memory, Postgres)
// and blob stores (e.g., memory, filesystem, S3) are provided under
// subpackages.
//
// Concurrency
//
// The Gate is purely functional over its arguments and safe for concurrent
// use. A Component tree is not safe for concurrent mutation and traversal;
// the Service serializes access to the trees it manages, and callers holding
// a raw tree must provide their own synchronization.
package sitetree
