// Package payload defines the keepsake interchange format.
//
// A Payload is the versioned, self-describing document exchanged between
// stores: it is what export produces, what import consumes, what merge reads
// and writes, and (at single-goal granularity) what the trash keeps as a
// snapshot. The package holds type definitions, the wire codec, canonical
// fingerprints and validation. It imports nothing from the rest of the
// module except the schema package.
//
// Wire rules:
//   - Field names are camelCase and additive-only across format versions
//   - Timestamps are RFC 3339 (ISO-8601)
//   - Every data point repeats its goalID even though it is nested under
//     its goal
//   - A document whose version exceeds FormatVersion is refused before any
//     other inspection
package payload
