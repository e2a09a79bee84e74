package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrDocumentTooLarge  = errors.New("document exceeds size limit")
)
