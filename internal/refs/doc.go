// Package refs enumerates git references and decides which of them become
// materialized versions.
//
// ReferenceLister parses for-each-ref output into immutable Reference values,
// classifying each by namespace (local branch, tag, remote branch).
// WhitelistFilter applies the per-namespace inclusion policy through an
// explicit decision table.
package refs
