// Package typeid issues prefixed, sortable identifiers.
package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixItem   = "item"
	PrefixLayer  = "layer"
	PrefixDraft  = "draft"
	PrefixExport = "exp"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewItemID() string   { return New(PrefixItem) }
func NewLayerID() string  { return New(PrefixLayer) }
func NewDraftID() string  { return New(PrefixDraft) }
func NewExportID() string { return New(PrefixExport) }

// Validate checks that id parses and carries expectedPrefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
