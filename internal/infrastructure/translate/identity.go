package translate

import (
	"context"

	"LiteratureDigest/internal/ports"
)

// Identity returns the text unchanged; used when no translation backend is configured.
type Identity struct{}

var _ ports.Translator = Identity{}

// Translate returns text as is.
func (Identity) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
