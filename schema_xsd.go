// schema_xsd.go — TypeDef -> XML Schema (generate only).
//
// The mapping is element-centric: the root type becomes <xs:element
// name="root">, objects become complexTypes with a sequence, arrays
// translate to occurrence bounds on the repeated element, and scalars
// map to the xs built-in types. Unions fall back to xs:anyType, which
// XSD 1.0 cannot express more tightly without xsi:type gymnastics.
package utlx

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

func generateXSD(t *TypeDef) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">` + "\n")
	if err := writeXSDElement(&buf, "root", t, nil, nil, 1); err != nil {
		return nil, err
	}
	buf.WriteString("</xs:schema>\n")
	return buf.Bytes(), nil
}

func writeXSDElement(buf *bytes.Buffer, name string, t *TypeDef, minOccurs, maxOccurs *int, depth int) error {
	if t == nil {
		t = AnyType
	}
	// Arrays attach occurrence bounds to the element itself.
	if t.Kind == TArray {
		lo, hi := 0, -1 // -1 renders as "unbounded"
		if t.MinItems != nil {
			lo = *t.MinItems
		}
		if t.MaxItems != nil {
			hi = *t.MaxItems
		}
		return writeXSDElement(buf, name, t.Elem, &lo, &hi, depth)
	}

	occurs := ""
	if minOccurs != nil {
		occurs += fmt.Sprintf(" minOccurs=%q", fmt.Sprint(*minOccurs))
	}
	if maxOccurs != nil {
		if *maxOccurs < 0 {
			occurs += ` maxOccurs="unbounded"`
		} else {
			occurs += fmt.Sprintf(" maxOccurs=%q", fmt.Sprint(*maxOccurs))
		}
	}

	xsdIndent(buf, depth)
	switch t.Kind {
	case TScalar:
		fmt.Fprintf(buf, "<xs:element name=%q type=%q%s/>\n", name, xsdScalar(t.Scalar), occurs)
		return nil
	case TObject:
		fmt.Fprintf(buf, "<xs:element name=%q%s>\n", name, occurs)
		xsdIndent(buf, depth+1)
		buf.WriteString("<xs:complexType>\n")
		xsdIndent(buf, depth+2)
		buf.WriteString("<xs:sequence>\n")
		for _, p := range t.Props {
			var lo *int
			if !t.Required[p.Name] || p.Nullable {
				zero := 0
				lo = &zero
			}
			if err := writeXSDElement(buf, p.Name, p.Type, lo, nil, depth+3); err != nil {
				return err
			}
		}
		xsdIndent(buf, depth+2)
		buf.WriteString("</xs:sequence>\n")
		xsdIndent(buf, depth+1)
		buf.WriteString("</xs:complexType>\n")
		xsdIndent(buf, depth)
		buf.WriteString("</xs:element>\n")
		return nil
	case TMap:
		// maps have no fixed element names; closest honest schema is xs:anyType
		fmt.Fprintf(buf, "<xs:element name=%q type=\"xs:anyType\"%s/>\n", name, occurs)
		return nil
	case TTuple:
		fmt.Fprintf(buf, "<xs:element name=%q%s>\n", name, occurs)
		xsdIndent(buf, depth+1)
		buf.WriteString("<xs:complexType>\n")
		xsdIndent(buf, depth+2)
		buf.WriteString("<xs:sequence>\n")
		for i, it := range t.Items {
			if err := writeXSDElement(buf, fmt.Sprintf("item%d", i+1), it, nil, nil, depth+3); err != nil {
				return err
			}
		}
		xsdIndent(buf, depth+2)
		buf.WriteString("</xs:sequence>\n")
		xsdIndent(buf, depth+1)
		buf.WriteString("</xs:complexType>\n")
		xsdIndent(buf, depth)
		buf.WriteString("</xs:element>\n")
		return nil
	case TFunction:
		return fmt.Errorf("xsd: cannot express a function type")
	default: // TAny, TUnion, TIntersection
		fmt.Fprintf(buf, "<xs:element name=%q type=\"xs:anyType\"%s/>\n", name, occurs)
		return nil
	}
}

func xsdScalar(k ScalarKind) string {
	switch k {
	case SString:
		return "xs:string"
	case SInteger:
		return "xs:long"
	case SNumber:
		return "xs:double"
	case SBoolean:
		return "xs:boolean"
	case SDate:
		return "xs:date"
	case SDateTime:
		return "xs:dateTime"
	case SNull:
		return "xs:string" // nilable handled by minOccurs
	}
	return "xs:anyType"
}

func xsdIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
