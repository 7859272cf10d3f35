package sdruntime

import (
	"fmt"
	"strings"
)

// ValidatePrompt checks that prompt can be handed to the C runtime as a
// NUL-terminated string of at most MaxPromptLength bytes.
func ValidatePrompt(prompt string) error {
	var reason string
	switch {
	case strings.TrimSpace(prompt) == "":
		reason = "prompt cannot be empty"
	case strings.IndexByte(prompt, 0) >= 0:
		reason = "prompt contains a NUL byte"
	case len(prompt) > MaxPromptLength:
		reason = fmt.Sprintf("prompt is %d bytes, limit is %d", len(prompt), MaxPromptLength)
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidPrompt, reason)
}
