package llm

import "context"

// Image is an optional attachment for vision-capable providers. Bytes
// are sent with the request and never persisted anywhere.
type Image struct {
	Data []byte
	MIME string
}

// Request carries one prompt to the provider. Generation parameters are
// fixed at construction time, not per call.
type Request struct {
	Prompt string
	Image  *Image
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client abstracts the external generative model: synchronous
// text-in/text-out, no streaming, no caching. Implementations classify
// failures via the error types in errors.go. Callers bound the call
// with a context timeout.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
