// Package report renders execution results for the console or a file
// in json, xml or plain text form.
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
)

type xmlEntry struct {
	XMLName xml.Name `xml:"entry"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

type xmlReport struct {
	XMLName xml.Name   `xml:"report"`
	Entries []xmlEntry `xml:"entry"`
}

// Render serializes data in the requested format: "json", "xml" or
// "normal".
func Render(data map[string]any, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(data, "", "  ")
	case "xml":
		r := xmlReport{}
		for _, k := range sortedKeys(data) {
			r.Entries = append(r.Entries, xmlEntry{Key: k, Value: fmt.Sprintf("%v", data[k])})
		}
		return xml.MarshalIndent(r, "", "  ")
	case "normal":
		return []byte(renderText(data)), nil
	default:
		return nil, fmt.Errorf("invalid format: %s", format)
	}
}

// WriteFile renders data and writes it to filename.
func WriteFile(data map[string]any, format, filename string) error {
	content, err := Render(data, format)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, content, 0644)
}

// Print renders data to stdout.
func Print(data map[string]any, format string) error {
	content, err := Render(data, format)
	if err != nil {
		return err
	}
	fmt.Println(string(content))
	return nil
}

func renderText(data map[string]any) string {
	var b strings.Builder
	b.WriteString("=== recontk report ===\n")
	for _, k := range sortedKeys(data) {
		fmt.Fprintf(&b, "\n[%s]\n%v\n", k, data[k])
	}
	return b.String()
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
