package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrInvalidSamples  ErrorCode = "invalid_sample_count"
	ErrInvalidThreads  ErrorCode = "invalid_thread_count"
	ErrUnknownWorkload ErrorCode = "unknown_workload"

	// Timing errors
	ErrCalibration ErrorCode = "calibration_failed"

	// Sampling errors
	ErrKernelFault    ErrorCode = "kernel_fault"
	ErrIncompleteRun  ErrorCode = "incomplete_sample_set"
	ErrAlreadyRunning ErrorCode = "benchmark_already_running"
	ErrStatsUndefined ErrorCode = "statistics_undefined"
	ErrInvalidSample  ErrorCode = "invalid_sample_value"

	// Integrity errors
	ErrSerialization    ErrorCode = "serialization_failed"
	ErrSchemaGeneration ErrorCode = "schema_generation_failed"
	ErrSchemaViolation  ErrorCode = "schema_violation"
	ErrSignatureInvalid ErrorCode = "signature_invalid"
	ErrSigningFailed    ErrorCode = "signing_failed"
	ErrInvalidKey       ErrorCode = "invalid_key_material"
	ErrReadKey          ErrorCode = "read_key_failed"
	ErrWriteKey         ErrorCode = "write_key_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Resource errors
	ErrResourceNotFound ErrorCode = "resource_not_found"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrNotImplemented:   "Operation not implemented",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInvalidSamples:   "Sample count must be at least 1",
	ErrInvalidThreads:   "Thread count must not be negative",
	ErrUnknownWorkload:  "Unknown workload",
	ErrCalibration:      "Clock calibration failed",
	ErrKernelFault:      "Workload kernel faulted",
	ErrIncompleteRun:    "Sample set is incomplete",
	ErrAlreadyRunning:   "Another benchmark is already running",
	ErrStatsUndefined:   "Statistics are undefined for an empty sample set",
	ErrInvalidSample:    "Sample value is not a finite number",
	ErrSerialization:    "Failed to serialize result record",
	ErrSchemaGeneration: "Failed to generate result schema",
	ErrSchemaViolation:  "Result record violates schema",
	ErrSignatureInvalid: "Signature invalid",
	ErrSigningFailed:    "Failed to sign result record",
	ErrInvalidKey:       "Invalid key material",
	ErrReadKey:          "Failed to read key file",
	ErrWriteKey:         "Failed to write key file",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrResourceNotFound: "Resource not found",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
