// Package evidence collects FDA web-search hits with their extracted page
// content and bounds the serialized size of the collection.
package evidence

import (
	"bytes"
	"encoding/json"
)

const (
	// DefaultByteBudget is the maximum serialized size of a Set.
	DefaultByteBudget = 110_000
	// DefaultMaxResults is how many search hits are requested.
	DefaultMaxResults = 5
	// EmptySet is the serialized form of a Set with no items.
	EmptySet = "[]"
)

// Item is one search hit with the text extracted from its linked page.
// Only Content is ever shortened.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Content string `json:"site_content"`
}

// Set is an ordered collection of items in search-provider rank order.
type Set []Item

// Marshal returns the JSON array encoding of s. HTML characters are not
// escaped, so the size measured here is the size stored on the record.
func (s Set) Marshal() ([]byte, error) {
	if len(s) == 0 {
		return []byte(EmptySet), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]Item(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Size returns the byte length of s's JSON encoding.
func (s Set) Size() (int, error) {
	b, err := s.Marshal()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// String returns the JSON encoding, or EmptySet if encoding fails.
func (s Set) String() string {
	b, err := s.Marshal()
	if err != nil {
		return EmptySet
	}
	return string(b)
}
