package solr

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// UpdateFormat selects the wire format used for index updates.
// Searches always use wt=json regardless of the update format.
type UpdateFormat int

const (
	// UpdateXML posts XML messages to the /update handler. This is the
	// default and works on every Solr version.
	UpdateXML UpdateFormat = iota
	// UpdateJSON posts JSON messages to the /update/json handler.
	UpdateJSON
)

// updateCodec encodes update operations for one wire format. The client
// is parameterized over a codec rather than subclassed per format.
type updateCodec interface {
	contentType() string
	// path is the update handler path relative to the core, e.g. "update".
	path() string
	encodeAdd(docs []Document) ([]byte, error)
	encodeDeleteID(id string) ([]byte, error)
	encodeDeleteQuery(q string) ([]byte, error)
	encodeCommit() []byte
}

func codecFor(f UpdateFormat) (updateCodec, error) {
	switch f {
	case UpdateXML:
		return xmlCodec{}, nil
	case UpdateJSON:
		return jsonCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown update format %d", f)
	}
}

// xmlCodec builds the classic <add>/<delete>/<commit/> update messages.
type xmlCodec struct{}

func (xmlCodec) contentType() string { return "text/xml" }
func (xmlCodec) path() string        { return "update" }

type xmlField struct {
	XMLName xml.Name `xml:"field"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:",chardata"`
}

type xmlDoc struct {
	XMLName xml.Name `xml:"doc"`
	Fields  []xmlField
}

type xmlAdd struct {
	XMLName xml.Name `xml:"add"`
	Docs    []xmlDoc
}

func (xmlCodec) encodeAdd(docs []Document) ([]byte, error) {
	msg := xmlAdd{Docs: make([]xmlDoc, 0, len(docs))}
	for _, doc := range docs {
		d := xmlDoc{}
		for name, value := range doc {
			for _, v := range fieldValues(value) {
				d.Fields = append(d.Fields, xmlField{
					Name:  name,
					Value: sanitize(formatScalar(v)),
				})
			}
		}
		msg.Docs = append(msg.Docs, d)
	}
	out, err := xml.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding add message: %w", err)
	}
	return out, nil
}

func (xmlCodec) encodeDeleteID(id string) ([]byte, error) {
	type delID struct {
		XMLName xml.Name `xml:"delete"`
		ID      string   `xml:"id"`
	}
	return xml.Marshal(delID{ID: sanitize(id)})
}

func (xmlCodec) encodeDeleteQuery(q string) ([]byte, error) {
	type delQuery struct {
		XMLName xml.Name `xml:"delete"`
		Query   string   `xml:"query"`
	}
	return xml.Marshal(delQuery{Query: sanitize(q)})
}

func (xmlCodec) encodeCommit() []byte { return []byte(`<commit/>`) }

// jsonCodec targets the /update/json handler.
type jsonCodec struct{}

func (jsonCodec) contentType() string { return "application/json" }
func (jsonCodec) path() string        { return "update/json" }

func (jsonCodec) encodeAdd(docs []Document) ([]byte, error) {
	out, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encoding add message: %w", err)
	}
	return out, nil
}

func (jsonCodec) encodeDeleteID(id string) ([]byte, error) {
	return json.Marshal(map[string]any{"delete": map[string]string{"id": id}})
}

func (jsonCodec) encodeDeleteQuery(q string) ([]byte, error) {
	return json.Marshal(map[string]any{"delete": map[string]string{"query": q}})
}

func (jsonCodec) encodeCommit() []byte { return []byte(`{"commit":{}}`) }

// sanitize strips the control characters Solr's XML parser rejects.
// Tab, newline, and carriage return are legal XML and kept.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
