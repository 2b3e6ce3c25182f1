package drafts

import (
	"errors"
	"time"

	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
)

// ErrorKind classifies a user-visible draft failure. Each kind maps to a
// static message id the client renders.
type ErrorKind string

const (
	ErrorUploadOverLimit   ErrorKind = "upload_over_limit"
	ErrorUploadFailed      ErrorKind = "upload_failed"
	ErrorImageRequired     ErrorKind = "image_required"
	ErrorPublishFailed     ErrorKind = "publish_failed"
	ErrorShowListingFailed ErrorKind = "show_listing_failed"
	ErrorUpdateFailed      ErrorKind = "update_failed"
)

type kindMeta struct {
	messageID string
	message   string
	code      pkgerrors.Code
}

var kinds = map[ErrorKind]kindMeta{
	ErrorUploadOverLimit: {
		messageID: "EditListingPhotosForm.imageUploadFailed.uploadOverLimit",
		message:   "image is over the upload size limit",
		code:      pkgerrors.CodeUploadLimit,
	},
	ErrorUploadFailed: {
		messageID: "EditListingPhotosForm.imageUploadFailed.uploadFailed",
		message:   "image upload failed",
		code:      pkgerrors.CodeDependency,
	},
	ErrorImageRequired: {
		messageID: "EditListingPhotosForm.imageRequired",
		message:   "at least one image is required",
		code:      pkgerrors.CodeValidation,
	},
	ErrorPublishFailed: {
		messageID: "EditListingPhotosForm.publishListingFailed",
		message:   "publishing the listing failed",
		code:      pkgerrors.CodeDependency,
	},
	ErrorShowListingFailed: {
		messageID: "EditListingPhotosForm.showListingFailed",
		message:   "fetching the listing failed",
		code:      pkgerrors.CodeDependency,
	},
	ErrorUpdateFailed: {
		messageID: "EditListingPhotosForm.updateFailed",
		message:   "updating the listing failed",
		code:      pkgerrors.CodeDependency,
	},
}

// MessageID returns the static message id for the kind.
func (k ErrorKind) MessageID() string { return kinds[k].messageID }

// Code returns the API error code the kind is reported with.
func (k ErrorKind) Code() pkgerrors.Code {
	if meta, ok := kinds[k]; ok {
		return meta.code
	}
	return pkgerrors.CodeInternal
}

// IsValid reports whether the kind is known.
func (k ErrorKind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// Error is a typed API error tagged with the draft error kind.
type Error struct {
	Kind ErrorKind
	err  *pkgerrors.Error
}

// newKindError keeps the cause's code when the failure was the client's fault,
// so only genuine dependency failures surface as retryable.
func newKindError(kind ErrorKind, cause error) *Error {
	meta := kinds[kind]
	code, message := meta.code, meta.message
	if typed := pkgerrors.As(cause); typed != nil && code == pkgerrors.CodeDependency && clientCodes[typed.Code()] {
		code, message = typed.Code(), typed.Message()
	}
	return &Error{Kind: kind, err: pkgerrors.Wrap(code, cause, message)}
}

var clientCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:    true,
	pkgerrors.CodeNotFound:      true,
	pkgerrors.CodeConflict:      true,
	pkgerrors.CodeStateConflict: true,
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// MessageID returns the static message id for the error's kind.
func (e *Error) MessageID() string { return e.Kind.MessageID() }

// KindOf extracts the draft error kind from err.
func KindOf(err error) (ErrorKind, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind, true
	}
	return "", false
}

// IsUploadOverLimit separates "file too large" upload failures from generic ones.
func IsUploadOverLimit(err error) bool {
	if kind, ok := KindOf(err); ok {
		return kind == ErrorUploadOverLimit
	}
	return pkgerrors.HasCode(err, pkgerrors.CodeUploadLimit)
}

// ErrorRecord is the last failure of one kind kept on the draft.
type ErrorRecord struct {
	Kind       ErrorKind `json:"kind"`
	MessageID  string    `json:"message_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newErrorRecord(kind ErrorKind, cause error, at time.Time) ErrorRecord {
	rec := ErrorRecord{Kind: kind, MessageID: kind.MessageID(), OccurredAt: at}
	if typed := pkgerrors.As(cause); typed != nil {
		rec.Detail = typed.Message()
	}
	return rec
}
