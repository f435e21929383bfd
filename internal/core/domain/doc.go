// Package domain defines the core domain models for rolegate:
// activity records, message events, grant decisions, and the
// structured error taxonomy.
//
// The domain layer has no dependencies on storage, transport, or
// telemetry. Ownership of mutable ActivityRecord state lies with the
// tracker; everything passed across package boundaries is a value copy.
package domain
