package supplier

import (
	"fmt"
	"time"
)

// Kind tags how a field is pulled out of a parsed page.
type Kind int

const (
	// KindEmpty marks a field the supplier does not expose.
	KindEmpty Kind = iota
	// KindPlainText takes the trimmed text of the first match.
	KindPlainText
	// KindAttributeDerived reads a numeric attribute and formats it as a price.
	KindAttributeDerived
	// KindListItems emits one entry per matching element.
	KindListItems
	// KindConcatenatedBlock splits the first match's text into lines.
	KindConcatenatedBlock
	// KindImageCollection resolves one image URL per matching element.
	KindImageCollection
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindPlainText:
		return "plain_text"
	case KindAttributeDerived:
		return "attribute_derived"
	case KindListItems:
		return "list_items"
	case KindConcatenatedBlock:
		return "concatenated_block"
	case KindImageCollection:
		return "image_collection"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field names the four extractable product fields.
type Field string

const (
	FieldTitle       Field = "title"
	FieldPrice       Field = "price"
	FieldDescription Field = "description"
	FieldImages      Field = "images"
)

// FieldSpec describes how one field is extracted for a supplier.
// An empty Selector means the field cannot be extracted.
type FieldSpec struct {
	Selector  string
	Kind      Kind
	Fallbacks []string

	// Attribute and Suffix are used by KindAttributeDerived.
	Attribute string
	Suffix    string

	// Manifest names a JSON attribute mapping image URL to [width, height].
	// HiResAttributes are tried in order before the generic image attributes.
	Manifest        string
	HiResAttributes []string
}

// Empty reports whether the field is intentionally unavailable.
func (f FieldSpec) Empty() bool {
	return f.Kind == KindEmpty || f.Selector == ""
}

// Selectors returns the primary selector followed by the fallback chain.
func (f FieldSpec) Selectors() []string {
	if f.Selector == "" {
		return nil
	}
	out := make([]string, 0, 1+len(f.Fallbacks))
	out = append(out, f.Selector)
	return append(out, f.Fallbacks...)
}

// Fields groups the per-field specs of a supplier.
type Fields struct {
	Title       FieldSpec
	Price       FieldSpec
	Description FieldSpec
	Images      FieldSpec
}

// ThumbnailExpansion activates lazy gallery thumbnails before the HTML is read.
type ThumbnailExpansion struct {
	Selector string
	Max      int
	Delay    time.Duration
	Wait     time.Duration
}

// RenderProfile holds the supplier-specific browser choreography.
type RenderProfile struct {
	SettleDelay     time.Duration
	SelectorTimeout time.Duration
	FinalDelay      time.Duration
	Headful         bool
	Thumbnails      *ThumbnailExpansion
	ReadMore        []string
}

// Pacing is the randomized delay window inserted before a supplier URL in a batch.
type Pacing struct {
	Min time.Duration
	Max time.Duration
}

// Config is the immutable extraction configuration of one supplier.
type Config struct {
	MatchKey          string
	DisplayName       string
	RequiresRendering bool
	Fields            Fields
	Render            RenderProfile
	Pacing            Pacing
}

// Spec returns the FieldSpec for the named field.
func (c Config) Spec(f Field) FieldSpec {
	switch f {
	case FieldTitle:
		return c.Fields.Title
	case FieldPrice:
		return c.Fields.Price
	case FieldDescription:
		return c.Fields.Description
	case FieldImages:
		return c.Fields.Images
	}
	return FieldSpec{}
}
