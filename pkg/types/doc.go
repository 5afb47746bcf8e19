/*
Package types defines the shared value vocabulary of the ReifyDB core.

It has no dependency on storage: pkg/key, pkg/row, pkg/store, pkg/catalog,
pkg/txn, pkg/cdc and pkg/flow all build on the same Version, Type, error
and change-event definitions declared here instead of each inventing their
own.

# Core Types

Versioning:
  - Version: the monotonically increasing commit version that is the sole
    visibility coordinate in the store.
  - TxID: the identifier of an in-flight transaction, distinct from the
    commit version it is eventually assigned.

Values:
  - Type: the closed enum of field types a row layout can hold. Fixed-width
    types (Bool, Int1..Int16, Uint1..Uint16, Float4, Float8) are stored
    inline; variable-width types (Utf8, Blob) are stored out-of-line.

Catalog entities:
  - Namespace, Table, RingBuffer, View, Column, PrimaryKey, Sequence, Flow:
    the versioned schema entities the catalog manages (see pkg/catalog).

Change events:
  - Operation, Diff, CDCEvent: the change-set vocabulary that flows from a
    transaction commit through the CDC log into the flow runtime.

Errors:
  - Error, Code: a single structured error type carrying a stable code and
    a Retryable flag, returned by every fallible operation in the core.

# Design Patterns

Enums are typed strings or small integer types with named constants,
following the convention used throughout this codebase:

	type Code string
	const (
	    CodeSerializationConflict Code = "serialization_conflict"
	)

Catalog entities are plain structs with an integer ID assigned from a
catalog sequence; optional fields use pointers or zero values, never both.
*/
package types
