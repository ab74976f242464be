package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ImageType separates compositing layers.
type ImageType string

const (
	ImageForeground ImageType = "foreground"
	ImageBackground ImageType = "background"
)

// ImageTypes lists every valid ImageType.
var ImageTypes = []ImageType{ImageForeground, ImageBackground}

// Valid reports whether t is one of ImageTypes.
func (t ImageType) Valid() bool {
	return t == ImageForeground || t == ImageBackground
}

// ImageMetadata describes an uploaded compositing image.
type ImageMetadata struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileKey    string    `json:"fileKey"`
	URL        string    `json:"url"`
	Type       ImageType `json:"type"`
	Emotions   []string  `json:"emotions"`
	Category   string    `json:"category,omitempty"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Validate checks the record. Foreground images need at least one emotion.
func (m *ImageMetadata) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.ID, validation.Required, idRule),
		validation.Field(&m.Filename, validation.Required),
		validation.Field(&m.Type, validation.Required, validation.In(ImageForeground, ImageBackground)),
		validation.Field(&m.Emotions, validation.When(m.Type == ImageForeground, validation.Required, validation.By(nonBlank))),
	)
}

// HasValue reports whether list holds at least one non-blank entry.
func HasValue(list []string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func nonBlank(value interface{}) error {
	list, _ := value.([]string)
	if !HasValue(list) {
		return errors.New("must contain a non-blank value")
	}
	return nil
}
