package ai

import "errors"

// Model invocation failures. Pipeline steps degrade or record these; none of
// them stops a batch.
var (
	ErrProviderUnavailable = errors.New("model provider unavailable")
	ErrInferenceTimeout    = errors.New("model inference timeout")
	ErrInvalidResponse     = errors.New("model returned invalid response")
	ErrQuotaExceeded       = errors.New("model request quota exceeded")
	// ErrContentBlocked means the provider refused the prompt or withheld the
	// output on safety grounds. Retrying the same input will not help.
	ErrContentBlocked = errors.New("model blocked the request")
)
