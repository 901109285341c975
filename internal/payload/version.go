package payload

// FormatVersion is the newest payload format revision this build can produce
// and consume. Bump it whenever an existing field changes name or meaning.
const FormatVersion = 1

// SnapshotVersion tags trash snapshots. Snapshots share the Goal schema, so
// it tracks FormatVersion.
const SnapshotVersion = FormatVersion
