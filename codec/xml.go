package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/baraverkstad/rcstorage"
)

// xmlSerializer implements the .xml format. encoding/xml has no native
// map[string]any support, so a Dictionary round-trips through a small
// <properties><entry key="...">...</entry></properties> document, with
// nested dictionaries and arrays represented as nested <entry>/<item>
// elements rather than flattened keys.
type xmlSerializer struct{}

func (xmlSerializer) Extension() string { return ".xml" }
func (xmlSerializer) MIME() string      { return "application/xml" }

type xmlDocument struct {
	XMLName xml.Name    `xml:"properties"`
	Entries []xmlEntry  `xml:"entry"`
}

type xmlEntry struct {
	Key      string      `xml:"key,attr"`
	Value    string      `xml:",chardata"`
	Entries  []xmlEntry  `xml:"entry,omitempty"`
	Items    []xmlItem   `xml:"item,omitempty"`
	IsNull   bool        `xml:"null,attr,omitempty"`
}

type xmlItem struct {
	Value   string     `xml:",chardata"`
	Entries []xmlEntry `xml:"entry,omitempty"`
	Items   []xmlItem  `xml:"item,omitempty"`
}

func (xmlSerializer) Serialize(_ string, d rcstorage.Dictionary, sink io.Writer) error {
	doc := xmlDocument{Entries: entriesFromMap(map[string]any(d))}
	enc := xml.NewEncoder(sink)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := sink.Write([]byte("\n"))
	return err
}

func entriesFromMap(m map[string]any) []xmlEntry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]xmlEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entryFromValue(k, m[k]))
	}
	return entries
}

func entryFromValue(key string, v any) xmlEntry {
	switch t := v.(type) {
	case nil:
		return xmlEntry{Key: key, IsNull: true}
	case map[string]any:
		return xmlEntry{Key: key, Entries: entriesFromMap(t)}
	case []any:
		return xmlEntry{Key: key, Items: itemsFromSlice(t)}
	default:
		return xmlEntry{Key: key, Value: fmt.Sprintf("%v", t)}
	}
}

func itemsFromSlice(s []any) []xmlItem {
	items := make([]xmlItem, 0, len(s))
	for _, v := range s {
		switch t := v.(type) {
		case map[string]any:
			items = append(items, xmlItem{Entries: entriesFromMap(t)})
		case []any:
			items = append(items, xmlItem{Items: itemsFromSlice(t)})
		default:
			items = append(items, xmlItem{Value: fmt.Sprintf("%v", t)})
		}
	}
	return items
}

func (xmlSerializer) Deserialize(_ string, src io.Reader) (rcstorage.Dictionary, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(src).Decode(&doc); err != nil {
		return nil, err
	}
	return rcstorage.Dictionary(mapFromEntries(doc.Entries)), nil
}

func mapFromEntries(entries []xmlEntry) map[string]any {
	m := make(map[string]any, len(entries))
	for _, e := range entries {
		m[e.Key] = valueFromEntry(e)
	}
	return m
}

func valueFromEntry(e xmlEntry) any {
	switch {
	case e.IsNull:
		return nil
	case len(e.Entries) > 0:
		return mapFromEntries(e.Entries)
	case len(e.Items) > 0:
		return sliceFromItems(e.Items)
	default:
		return parseScalar(e.Value)
	}
}

func sliceFromItems(items []xmlItem) []any {
	out := make([]any, len(items))
	for i, it := range items {
		switch {
		case len(it.Entries) > 0:
			out[i] = mapFromEntries(it.Entries)
		case len(it.Items) > 0:
			out[i] = sliceFromItems(it.Items)
		default:
			out[i] = parseScalar(it.Value)
		}
	}
	return out
}

func init() {
	rcstorage.RegisterSerializer(xmlSerializer{})
}
