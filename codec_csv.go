// codec_csv.go — CSV decode/encode.
//
// A CSV document is an array of flat objects: the header row names the
// keys and every cell arrives as Str (coercion is the transformation's
// job). The decoded array carries Meta.Hint = "csv". The encoder accepts
// an array of flat objects and honors the !header and !delimiter output
// directives; the column set is the union of keys across rows in first
// appearance order.
package utlx

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

func decodeCSV(data []byte) (Node, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return Node{}, fmt.Errorf("csv: %w", err)
	}
	if len(rows) == 0 {
		n := ArrNode(nil)
		n.ensureMeta().Hint = "csv"
		return n, nil
	}
	header := rows[0]
	out := make([]Node, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := NewFields()
		for i, col := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fields.Set(col, StrNode(cell))
		}
		out = append(out, ObjNode(fields))
	}
	n := ArrNode(out)
	n.ensureMeta().Hint = "csv"
	return n, nil
}

func encodeCSV(n Node) ([]byte, error) {
	if n.Kind != KArray {
		return nil, fmt.Errorf("csv: output must be an array of objects, got %s", n.Kind)
	}

	var header []string
	seen := map[string]bool{}
	for _, row := range n.Elems() {
		if row.Kind != KObject {
			return nil, fmt.Errorf("csv: rows must be objects, got %s", row.Kind)
		}
		for _, k := range row.Fields().Keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if delim := directiveString(n, "delimiter", ","); delim != "," {
		runes := []rune(delim)
		if len(runes) != 1 {
			return nil, fmt.Errorf("csv: !delimiter must be a single character, got %q", delim)
		}
		w.Comma = runes[0]
	}
	if directiveBool(n, "header", true) {
		if err := w.Write(header); err != nil {
			return nil, err
		}
	}
	record := make([]string, len(header))
	for _, row := range n.Elems() {
		for i, k := range header {
			record[i] = ""
			if v, ok := row.Fields().Get(k); ok {
				if v.Kind == KArray || v.Kind == KObject || v.Kind == KFunc {
					return nil, fmt.Errorf("csv: cell %q must be a scalar, got %s", k, v.Kind)
				}
				record[i] = scalarText(v)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
