package errors

// ErrorCode is the machine-readable code carried in a backend error response.
type ErrorCode string

const (
	CodeAPIKeyNotConfigured ErrorCode = "API_KEY_NOT_CONFIGURED"
	CodeInvalidFilename     ErrorCode = "INVALID_FILENAME"
	CodeProcessingFailed    ErrorCode = "PROCESSING_FAILED"
	CodeAIServiceError      ErrorCode = "AI_SERVICE_ERROR"
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	CodeAPIKeyNotConfigured: {
		Code:            CodeAPIKeyNotConfigured,
		Retryable:       false,
		Description:     "No AI API key is configured on the backend",
		SuggestedAction: "Configure it with: recall settings api-key set",
	},
	CodeInvalidFilename: {
		Code:            CodeInvalidFilename,
		Retryable:       false,
		Description:     "Transcript filename does not follow the naming convention",
		SuggestedAction: "Rename the file to YYYY-MM-DD_HHmm_MeetingType_SeriesName.txt and upload again",
	},
	CodeProcessingFailed: {
		Code:            CodeProcessingFailed,
		Retryable:       false,
		Description:     "Transcript processing failed on the backend",
		SuggestedAction: "Check the API key with: recall settings api-key status, then upload the transcript again",
	},
	CodeAIServiceError: {
		Code:            CodeAIServiceError,
		Retryable:       true,
		Description:     "Upstream AI service returned an error",
		SuggestedAction: "Wait a minute and upload again, or check the key: recall settings api-key status",
	},
	CodeValidationError: {
		Code:            CodeValidationError,
		Retryable:       false,
		Description:     "Request failed backend validation",
		SuggestedAction: "Fix the fields listed in the error details and send the request again",
	},
	CodeInternalError: {
		Code:            CodeInternalError,
		Retryable:       true,
		Description:     "Unexpected backend error",
		SuggestedAction: "Retry the command; if it keeps failing, check the backend logs",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Run the command again with --debug and check the backend logs"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
