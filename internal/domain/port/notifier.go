package port

import "context"

// FailureNotifier tells the uploader their recording could not be processed
// after all attempts were spent.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, jobID string, recordingID string, errorMsg string) error
}
