package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Parse reads one source file. Malformed records land in Batch.Errors; a file
// whose structure cannot be recognized returns an error.
func Parse(r io.Reader, format Format, name string) (*Batch, error) {
	switch format {
	case FormatCSV:
		return parseCSV(r, name)
	case FormatJSON:
		return parseJSON(r, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DetectDelimiter picks a pipe when the first line has more pipes than commas,
// or when splitting on pipes yields a known layout. The second rule covers
// detail rows whose CPT list holds more commas than the row has pipes.
func DetectDelimiter(firstLine string) rune {
	pipes, commas := strings.Count(firstLine, "|"), strings.Count(firstLine, ",")
	switch {
	case pipes > commas:
		return '|'
	case pipes > 0:
		if _, kind, _ := csvLayout(strings.Split(firstLine, "|")); kind != KindUnknown {
			return '|'
		}
	}
	return ','
}

func parseCSV(r io.Reader, name string) (*Batch, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte("\xef\xbb\xbf")) {
		br.Discard(3)
	}

	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
	}
	line, _, _ := bytes.Cut(first, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	cr := csv.NewReader(br)
	cr.Comma = DetectDelimiter(string(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	batch := &Batch{File: name, Format: FormatCSV}

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return batch, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
	}

	columns, kind, headerless := csvLayout(head)
	if kind == KindUnknown {
		return nil, fmt.Errorf("%w: %s: found fields %v, expected claims or claim details", ErrUnrecognizedHeader, name, head)
	}

	row := 0
	handle := func(record []string) {
		row++
		if len(record) < requiredColumns(columns, kind) {
			batch.reject(kind, row, fmt.Errorf("expected %d fields, got %d", len(columns), len(record)))
			return
		}

		f := make(fields, len(columns))
		for i, col := range columns {
			if i < len(record) {
				f[col] = record[i]
			}
		}
		batch.add(kind, row, f)
	}

	if headerless {
		handle(head)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				row++
				batch.reject(kind, row, perr.Err)
				continue
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
		}
		handle(record)
	}

	return batch, nil
}

// csvLayout resolves the column names of a file from its first record, which
// is either a header or, for headerless files, the first data row.
func csvLayout(first []string) (columns []string, kind Kind, headerless bool) {
	normalized := make([]string, len(first))
	for i, cell := range first {
		normalized[i] = normalizeField(cell)
	}

	if kind := classify(func(f string) bool { return slices.Contains(normalized, f) }); kind != KindUnknown {
		return normalized, kind, false
	}

	if len(first) == 0 {
		return nil, KindUnknown, false
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(first[0]), 10, 64); err != nil {
		return nil, KindUnknown, false
	}

	switch len(first) {
	case len(claimColumns):
		return claimColumns, KindClaim, true
	case len(detailColumns), len(detailColumns) - 1:
		return detailColumns, KindDetail, true
	default:
		return nil, KindUnknown, false
	}
}

// requiredColumns allows a trailing empty denial reason to be omitted.
func requiredColumns(columns []string, kind Kind) int {
	if kind == KindDetail && len(columns) > 0 && columns[len(columns)-1] == fieldDenialReason {
		return len(columns) - 1
	}
	return len(columns)
}

func (b *Batch) add(kind Kind, row int, f fields) {
	switch kind {
	case KindClaim:
		c, err := buildClaim(f)
		if err != nil {
			b.reject(kind, row, err)
			return
		}
		b.Claims = append(b.Claims, ClaimRecord{Row: row, Claim: c})
	case KindDetail:
		d, err := buildDetail(f)
		if err != nil {
			b.reject(kind, row, err)
			return
		}
		d.Row = row
		b.Details = append(b.Details, d)
	default:
		b.reject(KindUnknown, row, errors.New("record is neither a claim nor a claim detail"))
	}
}

type jsonDocument struct {
	Claims  []map[string]json.RawMessage `json:"claims"`
	Details []map[string]json.RawMessage `json:"claim_details"`
}

func parseJSON(r io.Reader, name string) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))

	batch := &Batch{File: name, Format: FormatJSON}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrUnsupportedDocument, name)
	}

	switch data[0] {
	case '{':
		var doc jsonDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
		}
		if doc.Claims == nil && doc.Details == nil {
			return nil, fmt.Errorf("%w: %s: expected \"claims\" or \"claim_details\"", ErrUnsupportedDocument, name)
		}
		for i, obj := range doc.Claims {
			batch.addJSON(KindClaim, i+1, obj)
		}
		for i, obj := range doc.Details {
			batch.addJSON(KindDetail, i+1, obj)
		}
	case '[':
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
		}
		for i, obj := range records {
			batch.addJSON("", i+1, obj)
		}
	default:
		return nil, fmt.Errorf("%w: %s: top level must be an object or array", ErrUnsupportedDocument, name)
	}

	return batch, nil
}

// addJSON converts one JSON object. An empty kind classifies by the keys present.
func (b *Batch) addJSON(kind Kind, row int, obj map[string]json.RawMessage) {
	f := make(fields, len(obj))
	for key, raw := range obj {
		v, err := jsonText(raw)
		if err != nil {
			if kind == "" {
				kind = KindUnknown
			}
			b.reject(kind, row, fmt.Errorf("%s: %v", key, err))
			return
		}
		f[normalizeField(key)] = v
	}

	if kind == "" {
		kind = classify(f.has)
	}
	b.add(kind, row, f)
}

// jsonText renders a scalar or an array of scalars as text. Arrays join with
// commas so a CPT code list may be given either way.
func jsonText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := jsonText(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case '{':
		return "", errors.New("unexpected object")
	default:
		// numbers and booleans keep their literal text
		return string(raw), nil
	}
}
