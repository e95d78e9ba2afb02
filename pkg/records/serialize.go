package records

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported serialization formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXML  = "xml"
	FormatTOML = "toml"
)

var (
	// ErrUnknownFormat is returned for a format name that is not supported.
	ErrUnknownFormat = errors.New("records: unknown serialization format")
	// ErrNotRecords is returned when XML output is requested for a value
	// that is not a record collection.
	ErrNotRecords = errors.New("records: xml serialization requires records")
)

// Options tunes serializer output.
type Options struct {
	// Indent is the number of spaces used for nesting. Zero produces compact
	// JSON and the encoder defaults for the other formats.
	Indent int
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatXML, FormatTOML}
}

// Serialize writes value to w in the named format. Records and record
// collections use the model/pk/fields layout.
func Serialize(w io.Writer, format string, value any, opts Options) error {
	recs, isRecords := Collect(value)
	if isRecords && recs == nil {
		recs = []Record{}
	}
	var payload = value
	if isRecords {
		payload = recs
	}

	switch normalizeFormat(format) {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if opts.Indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", opts.Indent))
		}
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if opts.Indent > 0 {
			enc.SetIndent(opts.Indent)
		}
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		enc := toml.NewEncoder(w)
		if opts.Indent > 0 {
			enc.Indent = strings.Repeat(" ", opts.Indent)
		}
		if err := enc.Encode(tomlPayload(payload, recs, isRecords)); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatXML:
		if !isRecords {
			return fmt.Errorf("%w, got %T", ErrNotRecords, value)
		}
		return writeXML(w, recs, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Deserialize parses data produced by Serialize for a record collection.
// Integral numbers are returned as int64.
func Deserialize(format string, data []byte) ([]Record, error) {
	var recs []Record
	switch normalizeFormat(format) {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case FormatTOML:
		var doc struct {
			Objects []Record `toml:"objects"`
		}
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		recs = doc.Objects
	case FormatXML:
		return readXML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	for i := range recs {
		recs[i].PK = normalizeValue(recs[i].PK)
		for k, v := range recs[i].Fields {
			recs[i].Fields[k] = normalizeValue(v)
		}
	}
	return recs, nil
}

func normalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "yml" {
		return FormatYAML
	}
	return f
}

// tomlPayload wraps values TOML cannot hold at the top level and drops nil
// values, which TOML has no representation for.
func tomlPayload(payload any, recs []Record, isRecords bool) any {
	if isRecords {
		objects := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			obj := map[string]any{"model": r.Model}
			if r.PK != nil {
				obj["pk"] = r.PK
			}
			fields := make(map[string]any, len(r.Fields))
			for k, v := range r.Fields {
				if v != nil {
					fields[k] = v
				}
			}
			obj["fields"] = fields
			objects = append(objects, obj)
		}
		return map[string]any{"objects": objects}
	}
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() == reflect.Map || v.Kind() == reflect.Struct {
		return payload
	}
	return map[string]any{"value": payload}
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case map[string]any:
		for k, inner := range n {
			n[k] = normalizeValue(inner)
		}
		return n
	case []any:
		for i, inner := range n {
			n[i] = normalizeValue(inner)
		}
		return n
	}
	return v
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"django-objects"`
	Version string      `xml:"version,attr"`
	Objects []xmlObject `xml:"object"`
}

type xmlObject struct {
	Model  string     `xml:"model,attr"`
	PK     string     `xml:"pk,attr,omitempty"`
	Fields []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string    `xml:"name,attr"`
	Type  string    `xml:"type,attr,omitempty"`
	None  *struct{} `xml:"None"`
	Value string    `xml:",chardata"`
}

const (
	xmlChar     = "CharField"
	xmlInt      = "IntegerField"
	xmlFloat    = "FloatField"
	xmlBool     = "BooleanField"
	xmlDateTime = "DateTimeField"
	xmlText     = "TextField"
)

func writeXML(w io.Writer, recs []Record, opts Options) error {
	doc := xmlDocument{Version: "1.0", Objects: make([]xmlObject, 0, len(recs))}
	for _, r := range recs {
		obj := xmlObject{Model: r.Model}
		if r.PK != nil {
			obj.PK = fmt.Sprint(r.PK)
		}
		for _, name := range r.FieldNames() {
			obj.Fields = append(obj.Fields, encodeXMLField(name, r.Fields[name]))
		}
		doc.Objects = append(doc.Objects, obj)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if opts.Indent > 0 {
		enc.Indent("", strings.Repeat(" ", opts.Indent))
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode xml: %w", err)
	}
	return enc.Close()
}

func encodeXMLField(name string, v any) xmlField {
	f := xmlField{Name: name}
	switch val := v.(type) {
	case nil:
		f.None = &struct{}{}
	case string:
		f.Type, f.Value = xmlChar, val
	case bool:
		f.Type = xmlBool
		if val {
			f.Value = "True"
		} else {
			f.Value = "False"
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f.Type, f.Value = xmlInt, fmt.Sprint(val)
	case float32:
		f.Type, f.Value = xmlFloat, strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		f.Type, f.Value = xmlFloat, strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		f.Type, f.Value = xmlDateTime, val.Format(time.RFC3339Nano)
	default:
		f.Type, f.Value = xmlText, fmt.Sprint(val)
	}
	return f
}

func readXML(data []byte) ([]Record, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode xml: %w", err)
	}
	recs := make([]Record, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		r := Record{Model: obj.Model, Fields: make(map[string]any, len(obj.Fields))}
		if obj.PK != "" {
			if i, err := strconv.ParseInt(obj.PK, 10, 64); err == nil {
				r.PK = i
			} else {
				r.PK = obj.PK
			}
		}
		for _, f := range obj.Fields {
			v, err := decodeXMLField(f)
			if err != nil {
				return nil, fmt.Errorf("field %q of %s: %w", f.Name, obj.Model, err)
			}
			r.Fields[f.Name] = v
		}
		recs = append(recs, r)
	}
	return recs, nil
}

func decodeXMLField(f xmlField) (any, error) {
	if f.None != nil {
		return nil, nil
	}
	switch f.Type {
	case xmlInt:
		return strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
	case xmlFloat:
		return strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
	case xmlBool:
		return strings.EqualFold(strings.TrimSpace(f.Value), "true"), nil
	case xmlDateTime:
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(f.Value))
	}
	return f.Value, nil
}
