// Package sanitizer provides input normalization for catalog data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings or empty slices rather than errors.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Genre labels: Lowercase after whitespace normalization
//   - URLs: Enforce HTTPS, lowercase domains, preserve paths
//   - Slices: Remove duplicates and empty values after normalization
package sanitizer
