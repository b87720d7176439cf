package message

import "errors"

// Typed results for the caller to map onto its own error surface. Lookup and
// authorization failures are deliberately indistinguishable at the API edge
// (a denied download never reveals whether the attachment exists), but the
// service itself reports which one happened.
var (
	ErrNotFound  = errors.New("message not found")
	ErrForbidden = errors.New("operation not permitted")

	ErrTooManyAttachments        = errors.New("too many attachments")
	ErrAttachmentsTooLarge       = errors.New("combined attachment size too large")
	ErrAttachmentTooLarge        = errors.New("attachment too large")
	ErrUnsupportedAttachmentType = errors.New("unsupported attachment type")
)
