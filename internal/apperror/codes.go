package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Wallet connection error codes
const (
	// Connection lifecycle: the taxonomy surfaced through the controller.
	CodeNoProvider         Code = "NO_PROVIDER"
	CodeUserRejected       Code = "USER_REJECTED"
	CodeHandshakeFailed    Code = "HANDSHAKE_FAILED"
	CodeUnsupportedNetwork Code = "UNSUPPORTED_NETWORK"
	CodeNoAccounts         Code = "NO_ACCOUNTS"

	// Provider request plumbing
	CodeProviderRequestFailed Code = "PROVIDER_REQUEST_FAILED"
	CodeRequestTimeout        Code = "REQUEST_TIMEOUT"
	CodeMethodNotSupported    Code = "METHOD_NOT_SUPPORTED"
	CodeInvalidChainID        Code = "INVALID_CHAIN_ID"
	CodeInvalidAccount        Code = "INVALID_ACCOUNT"

	// Bridge transport errors
	CodeBridgeConnectionFailed Code = "BRIDGE_CONNECTION_FAILED"
	CodeBridgeClosed           Code = "BRIDGE_CLOSED"
	CodeBridgeSendError        Code = "BRIDGE_SEND_ERROR"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Dev wallet errors
	CodeSigningFailed      Code = "SIGNING_FAILED"
	CodeUpstreamRPCError   Code = "UPSTREAM_RPC_ERROR"
	CodeKeyNotConfigured   Code = "KEY_NOT_CONFIGURED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
