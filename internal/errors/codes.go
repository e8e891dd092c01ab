package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrMissingConfig ErrorCode = "missing_configuration"
	ErrBindFlags     ErrorCode = "bind_flags_failed"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Connection errors
	ErrConnectionFailed ErrorCode = "connection_failed"

	// Resource errors
	ErrResourceBusy      ErrorCode = "resource_busy"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Device errors
	ErrDeviceUnavailable      ErrorCode = "device_unavailable"
	ErrUnrecognizedHardware   ErrorCode = "unrecognized_hardware_fault"
	ErrNameConflict           ErrorCode = "name_conflict"
	ErrInvalidState           ErrorCode = "invalid_state"
	ErrHardwareWriteFailed    ErrorCode = "hardware_write_failed"
	ErrHardwareReadFailed     ErrorCode = "hardware_read_failed"
	ErrHardwareCommandFailure ErrorCode = "hardware_command_failed"

	// Application errors
	ErrInitApp  ErrorCode = "init_app_failed"
	ErrMainLoop ErrorCode = "main_loop_failed"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:               "Internal error occurred",
	ErrInvalidArgument:        "Invalid argument provided",
	ErrNotImplemented:         "Operation not implemented",
	ErrInvalidConfig:          "Invalid configuration",
	ErrMissingConfig:          "Missing configuration",
	ErrBindFlags:              "Failed to bind flags",
	ErrReadConfig:             "Failed to read configuration",
	ErrInvalidLogLevel:        "Invalid log level",
	ErrInitFailed:             "Initialization failed",
	ErrShutdownFailed:         "Shutdown failed",
	ErrAlreadyRunning:         "Another instance is already running",
	ErrConnectionFailed:       "Connection failed",
	ErrResourceBusy:           "Resource is busy",
	ErrResourceNotFound:       "Resource not found",
	ErrResourceExhausted:      "Resource exhausted",
	ErrDeviceUnavailable:      "Device unavailable",
	ErrUnrecognizedHardware:   "Unrecognized hardware fault",
	ErrNameConflict:           "Name already in use",
	ErrInvalidState:           "Operation not valid in the current state",
	ErrHardwareWriteFailed:    "Failed to write device parameter",
	ErrHardwareReadFailed:     "Failed to read device parameter",
	ErrHardwareCommandFailure: "Failed to execute device command",
	ErrInitApp:                "Failed to initialize application",
	ErrMainLoop:               "Error in main loop",
	ErrOperationFailed:        "Operation failed",
	ErrTimeout:                "Operation timed out",
	ErrInvalidOperation:       "Invalid operation",
	ErrInitMetrics:            "Failed to initialize metrics",
	ErrCollectMetrics:         "Failed to collect metrics data",
	ErrCloseMetrics:           "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
