package edi

import "strings"

// Default X12 delimiters, used when a document does not begin with an ISA
// header the real set can be read from.
const (
	DefaultElementSeparator    = "*"
	DefaultSegmentTerminator   = "~"
	DefaultSubElementSeparator = ">"
)

// Delimiters is the delimiter set of one document.
type Delimiters struct {
	Element    string
	Segment    string
	SubElement string
}

// DefaultDelimiters returns the standard X12 delimiter set.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Element:    DefaultElementSeparator,
		Segment:    DefaultSegmentTerminator,
		SubElement: DefaultSubElementSeparator,
	}
}

// Segment is one delimited record of an EDI document.
type Segment struct {
	Tag      string
	Elements []string // Elements[0] is the tag
	Raw      string   // segment text without the terminator
}

// Element returns the element at position i, or the empty string when the
// segment is too short.
func (s Segment) Element(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return s.Elements[i]
}

// DetectDelimiters reads the delimiter set from the fixed positions of the
// interchange header: the element separator is the byte following the ISA
// tag and the segment terminator is the last byte of the document.
// Documents that do not begin with ISA get the defaults.
func DetectDelimiters(content string) Delimiters {
	d := DefaultDelimiters()
	if strings.HasPrefix(content, "ISA") && len(content) > 3 {
		d.Element = content[3:4]
		d.Segment = content[len(content)-1:]
	}
	return d
}

// Tokenize splits raw document text into ordered segments. Line endings are
// normalized first, then the delimiter set is detected and newlines that
// only decorate segment boundaries are dropped. Blank segments are skipped.
func Tokenize(content string) ([]Segment, Delimiters) {
	content = strings.TrimSpace(content)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	delims := DetectDelimiters(content)
	content = strings.ReplaceAll(content, delims.Segment+"\n", delims.Segment)

	var segments []Segment
	for _, raw := range strings.Split(content, delims.Segment) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		elements := strings.Split(raw, delims.Element)
		segments = append(segments, Segment{
			Tag:      elements[0],
			Elements: elements,
			Raw:      raw,
		})
	}
	return segments, delims
}
