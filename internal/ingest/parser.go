package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// Format is the layout of an input file.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatJSON      Format = "json"
	FormatXLSX      Format = "xlsx"
)

// headerAliases maps folded header names onto canonical record keys.
var headerAliases = map[string]string{
	"address1":        "address",
	"streetaddress":   "address",
	"street":          "address",
	"phonenumber":     "phone",
	"telephone":       "phone",
	"tel":             "phone",
	"zipcode":         "zip",
	"postalcode":      "zip",
	"postcode":        "zip",
	"clinicname":      "name",
	"businessname":    "name",
	"practicename":    "name",
	"websiteurl":      "website",
	"url":             "website",
	"site":            "website",
	"servicesoffered": "services",
	"treatments":      "services",
	"plan":            "tier",
}

// delimiters are the separators sniffed in delimited files, in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

// CanonicalKey folds a header (lowercase, alphanumerics only) and applies
// the alias table.
func CanonicalKey(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}

// DetectFormat picks a parser from the file extension, falling back to the
// first non-space byte of head when the extension is missing or unknown.
func DetectFormat(path string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	case ".csv", ".tsv", ".txt":
		return FormatDelimited
	}
	trimmed := bytes.TrimLeftFunc(head, unicode.IsSpace)
	trimmed = bytes.TrimPrefix(trimmed, []byte("\xef\xbb\xbf"))
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatDelimited
}

// ParseFile reads every record in the file at path.
func ParseFile(path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	br := bufio.NewReader(f)
	head, _ := br.Peek(512)

	format := DetectFormat(path, head)
	if format == FormatXLSX {
		return parseXLSX(path)
	}
	return Parse(br, format)
}

// Parse reads delimited or JSON records from r.
func Parse(r io.Reader, format Format) ([]model.RawRecord, error) {
	switch format {
	case FormatJSON:
		return parseJSON(r)
	case FormatDelimited:
		return parseDelimited(r)
	default:
		return nil, eris.Errorf("ingest: format %q cannot be parsed from a stream", format)
	}
}

func parseDelimited(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read delimited")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse delimited")
	}
	return rowsToRecords(rows), nil
}

// sniffDelimiter picks the candidate that appears most often in the header
// line, ignoring quoted sections.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(delimiters))
	inQuote := false
	for _, r := range string(line) {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			counts[r]++
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// rowsToRecords treats the first row as the header. Blank rows are skipped
// and cells beyond the header are ignored.
func rowsToRecords(rows [][]string) []model.RawRecord {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		keys[i] = CanonicalKey(h)
	}

	out := make([]model.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.RawRecord, len(keys))
		blank := true
		for i, cell := range row {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			rec[keys[i]] = cell
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}

func parseJSON(r io.Reader) ([]model.RawRecord, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "ingest: decode json")
	}

	var items []any
	switch t := doc.(type) {
	case []any:
		items = t
	case map[string]any:
		items = []any{t}
	default:
		return nil, eris.Errorf("ingest: json must be an object or an array of objects, got %T", doc)
	}

	out := make([]model.RawRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, eris.Errorf("ingest: json element %d is not an object", i)
		}
		rec := make(model.RawRecord, len(obj))
		for k, v := range obj {
			rec[CanonicalKey(k)] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseXLSX reads the first sheet; its first row is the header.
func parseXLSX(path string) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rowsToRecords(rows), nil
}
