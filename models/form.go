package models

import (
	"mime/multipart"
)

// FormData is the raw form as posted by the browser.
type FormData struct {
	File           *multipart.FileHeader `form:"resume"`
	Name           string                `form:"name" validate:"required,max=200"`
	Email          string                `form:"email" validate:"required,email,max=254"`
	Phone          string                `form:"phone" validate:"omitempty,phone"`
	TurnstileToken string                `form:"cf-turnstile-response"`
}

// File is an uploaded attachment read into memory.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// FormSubmission is a validated submission. It lives for a single request.
type FormSubmission struct {
	Name  string
	Email string
	Phone string
	File  *File
}

type UploadResult struct {
	PublicURL string
}

// SubmissionOutcome is what the orchestrator reports back to the caller.
type SubmissionOutcome struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}
