package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidContext        = errors.New("invalid upload context")
	ErrUnsupportedDataType   = errors.New("unsupported data type")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrUploadSessionNotFound = errors.New("no upload was presigned for this key")
	ErrUploadExpired         = errors.New("upload target expired before the object was stored")
	ErrAlreadyCommitted      = errors.New("key has already been committed")
	ErrObjectMissing         = errors.New("object not found in storage")
	ErrKindMismatch          = errors.New("key was presigned for a different resource kind")
	ErrUploadBusy            = errors.New("upload is being checked by the sweeper")
	ErrInvalidExportFormat   = errors.New("unsupported export format")
)
