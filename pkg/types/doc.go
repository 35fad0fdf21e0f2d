// Package types provides shared type definitions used across the lineup packages.
//
// This package contains fundamental types like EntityType, SourceTag, Field and
// EventState that are referenced by the catalog, matching, provenance and publish
// packages. Keeping them here avoids import cycles while maintaining type safety.
//
// The package has zero dependencies and serves as a foundation for the type system.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
