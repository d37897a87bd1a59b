package llm

import "context"

// Completer is the language-model collaborator. Implementations may return
// malformed text; callers must treat that as an expected failure mode, not a
// programming error.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface. Used by tests.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
