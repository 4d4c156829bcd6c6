package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConvertFile converts between CSV and JSON lines based on the source
// extension. When dst is empty the destination reuses src's base name with
// the other extension.
func ConvertFile(src, dst string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	var conv func(io.Reader, io.Writer) error
	var dstExt string
	switch ext {
	case ".csv":
		conv, dstExt = CSVToJSONL, ".jsonl"
	case ".jsonl", ".json":
		conv, dstExt = JSONLToCSV, ".csv"
	default:
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + dstExt
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if err := conv(in, out); err != nil {
		out.Close()
		return "", fmt.Errorf("convert %s: %w", src, err)
	}
	return dst, out.Close()
}

// CSVToJSONL writes one JSON object per CSV row, keys in header order.
// Numeric cells become JSON numbers and empty cells become null.
func CSVToJSONL(r io.Reader, w io.Writer) error {
	rows, err := readRows(r)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	header := normalizeHeader(rows[0])

	bw := bufio.NewWriter(w)
	for _, row := range rows[1:] {
		var line bytes.Buffer
		line.WriteByte('{')
		for i, col := range header {
			if i > 0 {
				line.WriteByte(',')
			}
			key, _ := json.Marshal(col)
			line.Write(key)
			line.WriteByte(':')

			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			line.Write(jsonCell(cell))
		}
		line.WriteString("}\n")
		if _, err := bw.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func jsonCell(cell string) []byte {
	if cell == "" {
		return []byte("null")
	}
	if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return []byte(cell)
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !strings.ContainsAny(cell, "xXnN_") {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64))
	}
	b, _ := json.Marshal(cell)
	return b
}

// JSONLToCSV writes a CSV with one row per JSON object. Columns follow the
// order in which keys are first seen. Objects are decoded as YAML nodes,
// a JSON superset, so key order survives decoding.
func JSONLToCSV(r io.Reader, w io.Writer) error {
	var (
		header  []string
		seen    = map[string]int{}
		records []map[string]string
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(line), &doc); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: expected a JSON object", lineNo)
		}

		obj := doc.Content[0]
		rec := make(map[string]string, len(obj.Content)/2)
		for i := 0; i+1 < len(obj.Content); i += 2 {
			key := obj.Content[i].Value
			val, err := nodeCell(obj.Content[i+1])
			if err != nil {
				return fmt.Errorf("line %d key %q: %w", lineNo, key, err)
			}
			if _, ok := seen[key]; !ok {
				seen[key] = len(header)
				header = append(header, key)
			}
			rec[key] = val
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = rec[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func nodeCell(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode {
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
