package models

import "time"

// Payload is the body forwarded to every sink. The raw file never leaves the
// service; only its public URL does.
type Payload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ResumeURL string `json:"resumeUrl,omitempty"`
}

// Field is one named value of a multipart body.
type Field struct {
	Name  string
	Value string
}

// Fields returns the payload as ordered multipart fields, dropping resumeUrl
// when no file was attached.
func (p Payload) Fields() []Field {
	fields := []Field{
		{Name: "name", Value: p.Name},
		{Name: "email", Value: p.Email},
		{Name: "phone", Value: p.Phone},
	}
	if p.ResumeURL != "" {
		fields = append(fields, Field{Name: "resumeUrl", Value: p.ResumeURL})
	}
	return fields
}

// Row returns the payload as a spreadsheet row.
func (p Payload) Row() []interface{} {
	return []interface{}{p.Name, p.Email, p.Phone, p.ResumeURL}
}

// Envelope wraps the payload for webhooks that expect CV data plus
// processing metadata.
type Envelope struct {
	CVData   EnvelopeCV       `json:"cv_data"`
	Metadata EnvelopeMetadata `json:"metadata"`
}

type EnvelopeCV struct {
	PersonalInfo PersonalInfo `json:"personal_info"`
	CVPublicLink string       `json:"cv_public_link,omitempty"`
}

type PersonalInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type EnvelopeMetadata struct {
	ApplicantName      string `json:"applicant_name"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	CVProcessed        bool   `json:"cv_processed"`
	ProcessedTimestamp string `json:"processed_timestamp"`
}

// EnvelopeTimeFormat is a UTC ISO 8601 timestamp without zone suffix.
const EnvelopeTimeFormat = "2006-01-02T15:04:05.000000"

// Envelope builds the wrapped body. contact falls back to the applicant's
// email. CV text is not extracted, so cv_processed is always false.
func (p Payload) Envelope(status, contact string, at time.Time) Envelope {
	if contact == "" {
		contact = p.Email
	}
	return Envelope{
		CVData: EnvelopeCV{
			PersonalInfo: PersonalInfo{Name: p.Name, Email: p.Email, Phone: p.Phone},
			CVPublicLink: p.ResumeURL,
		},
		Metadata: EnvelopeMetadata{
			ApplicantName:      p.Name,
			Email:              contact,
			Status:             status,
			ProcessedTimestamp: at.UTC().Format(EnvelopeTimeFormat),
		},
	}
}
