package jobs

import "context"

// Image is a source frame sent to the provider.
type Image struct {
	Data     []byte
	MimeType string
}

// VideoRequest is one generation request as the provider sees it. Prompt
// is the effective prompt after auto-reference rewriting and the silent
// suffix.
type VideoRequest struct {
	Image       Image
	SecondImage *Image
	Prompt      string
	AspectRatio string
}

// ProviderState is the provider's view of an operation.
type ProviderState string

// Provider states.
const (
	ProviderRunning   ProviderState = "running"
	ProviderCompleted ProviderState = "completed"
	ProviderFailed    ProviderState = "failed"
)

// Artifact references a finished video. Providers set Data when the bytes
// come back inline, URI otherwise.
type Artifact struct {
	URI      string
	Data     []byte
	MimeType string
}

// ProviderStatus is one status report for an operation.
type ProviderStatus struct {
	State    ProviderState
	Artifact Artifact
	// Reason explains a failure.
	Reason string
}

// Provider is the remote video-generation capability.
type Provider interface {
	SubmitJob(ctx context.Context, req VideoRequest) (operationName string, err error)
	GetStatus(ctx context.Context, operationName string) (ProviderStatus, error)
	Download(ctx context.Context, artifact Artifact) ([]byte, error)
}
