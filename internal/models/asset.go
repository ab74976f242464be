// Package models defines the domain types of the brand catalog.
package models

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AssetType is the closed set of brand asset kinds.
type AssetType string

const (
	AssetLogo        AssetType = "logo"
	AssetLogoVersion AssetType = "logo-version"
	AssetColor       AssetType = "color"
	AssetFont        AssetType = "font"
	AssetIcon        AssetType = "icon"
	AssetProjectLogo AssetType = "project-logo"
	AssetMenuLogo    AssetType = "menu-logo"
)

// AssetTypes lists every valid AssetType.
var AssetTypes = []AssetType{
	AssetLogo, AssetLogoVersion, AssetColor, AssetFont,
	AssetIcon, AssetProjectLogo, AssetMenuLogo,
}

var (
	hexColorRe = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)
	idRe       = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ValidID reports whether id may name a record. Ids become part of storage
// keys, so the key separator ':' and anything else outside [A-Za-z0-9_-]
// is refused.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

var idRule = validation.Match(idRe).Error("must contain only letters, digits, '-' and '_'")

// Valid reports whether t is one of AssetTypes.
func (t AssetType) Valid() bool {
	for _, v := range AssetTypes {
		if v == t {
			return true
		}
	}
	return false
}

// FileBacked reports whether assets of this type carry an uploaded file.
func (t AssetType) FileBacked() bool {
	switch t {
	case AssetLogo, AssetLogoVersion, AssetIcon, AssetProjectLogo, AssetMenuLogo:
		return true
	}
	return false
}

// BrandAsset is a brand resource record: a logo, color, font or icon with
// its metadata and optional file references.
type BrandAsset struct {
	ID          string    `json:"id"`
	Type        AssetType `json:"type"`
	Brand       string    `json:"brand"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	// File-backed types.
	FileKey string `json:"fileKey,omitempty"`
	URL     string `json:"url,omitempty"`
	Format  string `json:"format,omitempty"`

	// Second file of a logo-version (e.g. the dark variant).
	SecondaryFileKey string `json:"secondaryFileKey,omitempty"`
	SecondaryURL     string `json:"secondaryUrl,omitempty"`
	SecondaryFormat  string `json:"secondaryFormat,omitempty"`
	Variant          string `json:"variant,omitempty"`

	// Color.
	Hex      string `json:"hex,omitempty"`
	RGB      string `json:"rgb,omitempty"`
	Usage    string `json:"usage,omitempty"`
	Category string `json:"category,omitempty"`

	// Font.
	FontFamily string   `json:"fontFamily,omitempty"`
	FontURL    string   `json:"fontUrl,omitempty"`
	Weights    []string `json:"weights,omitempty"`
	Preview    string   `json:"preview,omitempty"`

	Tags      []string  `json:"tags"`
	Order     *int      `json:"order,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields every stored asset must have.
func (a *BrandAsset) Validate() error {
	types := make([]interface{}, len(AssetTypes))
	for i, t := range AssetTypes {
		types[i] = t
	}
	return validation.ValidateStruct(a,
		validation.Field(&a.ID, validation.Required, idRule),
		validation.Field(&a.Type, validation.Required, validation.In(types...)),
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Hex,
			validation.When(a.Type == AssetColor, validation.Required),
			validation.Match(hexColorRe)),
	)
}

// AssetPatch carries the mutable fields of an update. It has no ID or Type
// field: identity never changes after creation.
type AssetPatch struct {
	Brand            *string   `json:"brand,omitempty"`
	Name             *string   `json:"name,omitempty"`
	Description      *string   `json:"description,omitempty"`
	FileKey          *string   `json:"fileKey,omitempty"`
	URL              *string   `json:"url,omitempty"`
	Format           *string   `json:"format,omitempty"`
	SecondaryFileKey *string   `json:"secondaryFileKey,omitempty"`
	SecondaryURL     *string   `json:"secondaryUrl,omitempty"`
	SecondaryFormat  *string   `json:"secondaryFormat,omitempty"`
	Variant          *string   `json:"variant,omitempty"`
	Hex              *string   `json:"hex,omitempty"`
	RGB              *string   `json:"rgb,omitempty"`
	Usage            *string   `json:"usage,omitempty"`
	Category         *string   `json:"category,omitempty"`
	FontFamily       *string   `json:"fontFamily,omitempty"`
	FontURL          *string   `json:"fontUrl,omitempty"`
	Weights          *[]string `json:"weights,omitempty"`
	Preview          *string   `json:"preview,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
	Order            *int      `json:"order,omitempty"`
}

// Apply copies every set field of p onto a.
func (p AssetPatch) Apply(a *BrandAsset) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Brand, p.Brand)
	set(&a.Name, p.Name)
	set(&a.Description, p.Description)
	set(&a.FileKey, p.FileKey)
	set(&a.URL, p.URL)
	set(&a.Format, p.Format)
	set(&a.SecondaryFileKey, p.SecondaryFileKey)
	set(&a.SecondaryURL, p.SecondaryURL)
	set(&a.SecondaryFormat, p.SecondaryFormat)
	set(&a.Variant, p.Variant)
	set(&a.Hex, p.Hex)
	set(&a.RGB, p.RGB)
	set(&a.Usage, p.Usage)
	set(&a.Category, p.Category)
	set(&a.FontFamily, p.FontFamily)
	set(&a.FontURL, p.FontURL)
	set(&a.Preview, p.Preview)
	if p.Weights != nil {
		a.Weights = append([]string(nil), *p.Weights...)
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), *p.Tags...)
	}
	if p.Order != nil {
		o := *p.Order
		a.Order = &o
	}
}
