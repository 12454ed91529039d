package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrDocumentNotObject    = errors.New("document must be a JSON object")
	ErrDocumentDuplicateKey = errors.New("document contains a duplicate key")
)

// Document is a JSON object that keeps its keys in insertion order.
// Values are string, json.Number, bool, nil, Document or []interface{}.
type Document struct {
	keys   []string
	values map[string]interface{}
}

func NewDocument() *Document {
	return &Document{values: make(map[string]interface{})}
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (d *Document) Set(key string, value interface{}) {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func (d *Document) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *Document) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

func (d *Document) Len() int {
	return len(d.keys)
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := marshalDocumentValue(&buf, d.values[key]); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalDocumentValue(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case Document:
		b, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	case *Document:
		if v == nil {
			buf.WriteString("null")
			return nil
		}
		b, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalDocumentValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrDocumentNotObject
	}

	parsed, err := decodeDocument(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after document")
	}

	*d = parsed
	return nil
}

// decodeDocument reads object members up to and including the closing brace
func decodeDocument(dec *json.Decoder) (Document, error) {
	doc := Document{values: make(map[string]interface{})}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Document{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Document{}, fmt.Errorf("invalid document key %v", tok)
		}
		if _, exists := doc.values[key]; exists {
			return Document{}, fmt.Errorf("%w: %q", ErrDocumentDuplicateKey, key)
		}
		value, err := decodeDocumentValue(dec)
		if err != nil {
			return Document{}, err
		}
		doc.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func decodeDocumentValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		return decodeDocument(dec)
	case '[':
		list := []interface{}{}
		for dec.More() {
			item, err := decodeDocumentValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// Value implements driver.Valuer
func (d Document) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *Document) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported document source type %T", value)
	}
	return d.UnmarshalJSON(data)
}

func (Document) GormDataType() string {
	return "json"
}
