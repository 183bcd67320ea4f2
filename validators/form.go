package validators

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// phonePattern accepts national and international numbers once separators
// are stripped.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateProcessFormData checks the raw form and reads the optional file.
// Every failing field is reported in a single ValidationError.
func ValidateProcessFormData(formData models.FormData, maxSize int64) (models.FormSubmission, error) {
	formData.Name = strings.TrimSpace(formData.Name)
	formData.Email = strings.TrimSpace(formData.Email)
	formData.Phone = normalizePhone(formData.Phone)

	fields := map[string]string{}
	if err := validate.Struct(formData); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.FormSubmission{}, err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
	}
	if formData.File != nil && formData.File.Size > maxSize {
		fields["resume"] = fmt.Sprintf("file size exceeds the maximum limit of %d bytes", maxSize)
	}
	if len(fields) > 0 {
		return models.FormSubmission{}, &models.ValidationError{Fields: fields}
	}

	submission := models.FormSubmission{
		Name:  formData.Name,
		Email: formData.Email,
		Phone: formData.Phone,
	}
	if formData.File != nil {
		file, err := validateProcessFile(formData.File, maxSize)
		if err != nil {
			return models.FormSubmission{}, err
		}
		submission.File = file
	}
	return submission, nil
}

// ValidateSubmission re-checks an already built submission. It never touches
// the network.
func ValidateSubmission(sub models.FormSubmission, maxSize int64) error {
	fields := map[string]string{}
	if strings.TrimSpace(sub.Name) == "" {
		fields["name"] = "is required"
	}
	if err := validate.Var(sub.Email, "required,email"); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields["email"] = message(verrs[0])
		} else {
			fields["email"] = "is invalid"
		}
	}
	if sub.File != nil && maxSize > 0 && int64(len(sub.File.Content)) > maxSize {
		fields["resume"] = fmt.Sprintf("file size exceeds the maximum limit of %d bytes", maxSize)
	}
	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

func validateProcessFile(header *multipart.FileHeader, maxSize int64) (*models.File, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Header size is client supplied.
	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, models.NewValidationError("resume", fmt.Sprintf("file size exceeds the maximum limit of %d bytes", maxSize))
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &models.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Content:     data,
	}, nil
}

// normalizePhone strips the separators a phone input widget may insert.
func normalizePhone(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a phone number such as +15551234567 or 0151 2345678"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
