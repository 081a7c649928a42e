// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PathStep is one element on the way from the document root to a text node:
// the tag name followed by the values of the requested attributes. A nil
// attribute value means the element does not carry that attribute.
type PathStep struct {
	Tag   string
	Attrs []*string
}

// MarshalJSON encodes the step as a flat array: ["div", "title", null].
func (s PathStep) MarshalJSON() ([]byte, error) {
	arr := make([]*string, 0, len(s.Attrs)+1)
	tag := s.Tag
	arr = append(arr, &tag)
	arr = append(arr, s.Attrs...)
	return json.Marshal(arr)
}

// UnmarshalJSON decodes the flat array form produced by MarshalJSON.
func (s *PathStep) UnmarshalJSON(data []byte) error {
	var arr []*string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("path step: %w", err)
	}
	if len(arr) == 0 || arr[0] == nil {
		return fmt.Errorf("path step: missing tag name in %s", data)
	}
	s.Tag = *arr[0]
	s.Attrs = nil
	if len(arr) > 1 {
		s.Attrs = arr[1:]
	}
	return nil
}

// StructuralPath is the ancestry of a text node, root first.
type StructuralPath []PathStep

// Key returns the canonical encoding of the path. Two paths are equal iff
// their keys are equal.
func (p StructuralPath) Key() string {
	if p == nil {
		p = StructuralPath{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		// PathStep only holds strings, so encoding cannot fail.
		panic(err)
	}
	return string(data)
}

// Equal reports whether p and q describe the same ancestry.
func (p StructuralPath) Equal(q StructuralPath) bool {
	return p.Key() == q.Key()
}

// Append returns a new path with step added. The receiver is never modified.
func (p StructuralPath) Append(step PathStep) StructuralPath {
	out := make(StructuralPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}

// ParseStructuralPath decodes a path from its JSON form, as written in a
// manifest or passed on the command line.
func ParseStructuralPath(s string) (StructuralPath, error) {
	var p StructuralPath
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing structural path %q: %w", s, err)
	}
	return p, nil
}
