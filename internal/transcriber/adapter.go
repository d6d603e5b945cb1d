// Package transcriber converts short audio clips to text
package transcriber

import "context"

// Adapter is the speech-to-text capability the segment pipeline consumes.
// Implementations transcribe one clip per call and return a single string;
// failures propagate to the caller, which does not retry.
type Adapter interface {
	Transcribe(ctx context.Context, clipPath string) (string, error)
}

// AdapterFunc adapts a plain function to the Adapter interface
type AdapterFunc func(ctx context.Context, clipPath string) (string, error)

// Transcribe implements Adapter
func (f AdapterFunc) Transcribe(ctx context.Context, clipPath string) (string, error) {
	return f(ctx, clipPath)
}
