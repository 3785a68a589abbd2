package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Connection lifecycle
	CodeNoProvider:         "No wallet provider available",
	CodeUserRejected:       "Wallet request rejected by user",
	CodeHandshakeFailed:    "Wallet handshake failed",
	CodeUnsupportedNetwork: "Connected network is not supported",
	CodeNoAccounts:         "Wallet returned no accounts",

	// Provider request plumbing
	CodeProviderRequestFailed: "Wallet provider request failed",
	CodeRequestTimeout:        "Wallet provider request timed out",
	CodeMethodNotSupported:    "Method not supported by the wallet provider",
	CodeInvalidChainID:        "Invalid chain id",
	CodeInvalidAccount:        "Invalid account address",

	// Bridge transport errors
	CodeBridgeConnectionFailed: "Failed to connect to the wallet bridge",
	CodeBridgeClosed:           "Wallet bridge connection closed",
	CodeBridgeSendError:        "Failed to send message to the wallet bridge",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Dev wallet errors
	CodeSigningFailed:    "Message signing failed",
	CodeUpstreamRPCError: "Upstream RPC node request failed",
	CodeKeyNotConfigured: "No signing key configured for the dev wallet",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
