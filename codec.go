// codec.go — data format front doors.
//
// A Format names one of the supported external representations. Decode
// turns raw bytes into a data tree; Encode renders a tree back out.
// Output directives (!pretty, !header, !version, ...) ride on the root
// node's Meta.Directives and are consumed by the encoder for the chosen
// format; unknown directives are rejected by the semantic checker before
// evaluation, so encoders ignore names they do not own.
package utlx

import "fmt"

// Format identifies an external data representation.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
	FormatCSV
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	case FormatCSV:
		return "csv"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a header directive argument ("json", "xml", ...) to a
// Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unknown format %q", name)
}

// Decode parses raw input bytes into a data tree.
func Decode(f Format, data []byte) (Node, error) {
	switch f {
	case FormatJSON:
		return decodeJSON(data)
	case FormatXML:
		return decodeXML(data)
	case FormatCSV:
		return decodeCSV(data)
	case FormatYAML:
		return decodeYAML(data)
	}
	return Node{}, fmt.Errorf("unknown format %q", f)
}

// Encode renders a data tree in the given format. Directives on the root
// node's metadata steer the encoder.
func Encode(f Format, n Node) ([]byte, error) {
	switch f {
	case FormatJSON:
		return encodeJSON(n)
	case FormatXML:
		return encodeXML(n)
	case FormatCSV:
		return encodeCSV(n)
	case FormatYAML:
		return encodeYAML(n)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// directive fetches a named output directive from the root node, if set.
func directive(n Node, name string) (Node, bool) {
	if n.Meta == nil || n.Meta.Directives == nil {
		return Node{}, false
	}
	return n.Meta.Directives.Get(name)
}

func directiveString(n Node, name, def string) string {
	d, ok := directive(n, name)
	if !ok || d.Kind != KStr {
		return def
	}
	return d.Data.(string)
}

func directiveBool(n Node, name string, def bool) bool {
	d, ok := directive(n, name)
	if !ok || d.Kind != KBool {
		return def
	}
	return d.Data.(bool)
}
