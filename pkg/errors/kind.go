package errors

// Kind categorizes a failure from the core. The spec deliberately keeps
// this to a single closed set rather than the teacher's open-ended,
// per-subsystem error-code taxonomy (pkg/errors/codes.go in the
// reference ignite package): every failure in the field-serialization
// core surfaces through one error channel carrying a Kind and a
// message.
type Kind string

const (
	UnknownField              Kind = "UNKNOWN_FIELD"
	AlreadyRegistered         Kind = "ALREADY_REGISTERED"
	SchemaConflict            Kind = "SCHEMA_CONFLICT"
	DuplicateSavepoint         Kind = "DUPLICATE_SAVEPOINT"
	UnknownSavepoint           Kind = "UNKNOWN_SAVEPOINT"
	IDMismatch                 Kind = "ID_MISMATCH"
	DuplicateFieldAtSavepoint Kind = "DUPLICATE_FIELD_AT_SAVEPOINT"
	FieldNotAtSavepoint        Kind = "FIELD_NOT_AT_SAVEPOINT"
	NeverSerialized            Kind = "NEVER_SERIALIZED"
	WrongMode                  Kind = "WRONG_MODE"
	DuplicateKey               Kind = "DUPLICATE_KEY"
	MissingKey                 Kind = "MISSING_KEY"
	TypeMismatch               Kind = "TYPE_MISMATCH"
	NotExact                   Kind = "NOT_EXACT"
	ParseError                 Kind = "PARSE_ERROR"
	MalformedIndex             Kind = "MALFORMED_INDEX"
	IOFailure                  Kind = "IO_FAILURE"
)

// Fatal reports whether errors of this kind are non-recoverable by the
// caller. Only MalformedIndex is fatal: a corrupted index risks silent
// data loss if the engine tried to continue past it.
func (k Kind) Fatal() bool {
	return k == MalformedIndex
}
