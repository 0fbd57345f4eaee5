package info

import (
	"strconv"
	"strings"
)

// identKey matches keys that can be written without bracket quoting.
func identKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if i == 0 && !isIdentStart(c) {
			return false
		}
		if !isIdentPart(c) {
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// longString writes s in [[...]] form, the serializer's notation for scalar
// leaves inside tables, falling back to quoting when the delimiter appears in
// the text.
func longString(s string) string {
	if strings.Contains(s, "]]") || strings.Contains(s, "\n") {
		return quoteString(s)
	}
	return "[[" + s + "]]"
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func writeValue(sb *strings.Builder, v Value, indent string) {
	switch v := v.(type) {
	case string:
		sb.WriteString(longString(v))
	case float64:
		sb.WriteString(formatNumber(v))
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case *Table:
		writeTable(sb, v, indent)
	}
}

func writeTable(sb *strings.Builder, t *Table, indent string) {
	if t == nil || (len(t.List) == 0 && len(t.Fields) == 0) {
		sb.WriteString("{}")
		return
	}
	inner := indent + "  "
	sb.WriteString("{\n")
	for _, v := range t.List {
		sb.WriteString(inner)
		writeValue(sb, v, inner)
		sb.WriteString(",\n")
	}
	for _, kv := range t.Fields {
		sb.WriteString(inner)
		if identKey(kv.Key) {
			sb.WriteString(kv.Key)
		} else {
			sb.WriteString("[" + quoteString(kv.Key) + "]")
		}
		sb.WriteString(" = ")
		writeValue(sb, kv.Val, inner)
		sb.WriteString(",\n")
	}
	sb.WriteString(indent + "}")
}

func writeAssignment(sb *strings.Builder, key string, v Value) {
	if identKey(key) {
		sb.WriteString(key)
	} else {
		sb.WriteString("_G['" + key + "']")
	}
	sb.WriteString(" = ")
	// Top-level scalars use plain quoting; only values inside tables take the
	// long-string form.
	if s, ok := v.(string); ok {
		sb.WriteString(quoteString(s))
	} else {
		writeValue(sb, v, "")
	}
	sb.WriteString("\n")
}

// fields returns the assignments of d in canonical serialization order.
func (d *DistInfo) fields() []KV {
	var kvs []KV
	add := func(key, val string) {
		if val != "" {
			kvs = append(kvs, KV{Key: key, Val: val})
		}
	}
	add("name", d.Name)
	add("version", d.Version)
	add("arch", d.Arch)
	add("type", d.Type)
	add("desc", d.Desc)
	add("author", d.Author)
	add("maintainer", d.Maintainer)
	add("license", d.License)
	add("url", d.URL)
	add("message", d.Message)
	add("path", d.Path)
	if d.Depends != nil {
		kvs = append(kvs, KV{Key: "depends", Val: d.Depends})
	}
	if d.Conflicts != nil {
		kvs = append(kvs, KV{Key: "conflicts", Val: d.Conflicts})
	}
	if d.Provides != nil {
		kvs = append(kvs, KV{Key: "provides", Val: d.Provides})
	}
	if len(d.Files) > 0 {
		t := &Table{}
		for _, f := range d.Files {
			t.List = append(t.List, f)
		}
		kvs = append(kvs, KV{Key: "files", Val: t})
	}
	return kvs
}

// Serialize renders d as a dist.info file of top-level assignments. The
// Provided back-reference is resolver state and is never written.
func (d *DistInfo) Serialize() []byte {
	var sb strings.Builder
	for _, kv := range d.fields() {
		writeAssignment(&sb, kv.Key, kv.Val)
	}
	return []byte(sb.String())
}

// SerializeManifest renders a manifest as the single expression
// `return { ... }true`. The trailing literal is a historical sentinel
// existing consumers require; keep it byte-exact.
func SerializeManifest(infos []*DistInfo) []byte {
	var sb strings.Builder
	sb.WriteString("return {\n")
	for _, d := range infos {
		sb.WriteString("  {\n")
		for _, kv := range d.fields() {
			sb.WriteString("    ")
			if identKey(kv.Key) {
				sb.WriteString(kv.Key)
			} else {
				sb.WriteString("[" + quoteString(kv.Key) + "]")
			}
			sb.WriteString(" = ")
			writeValue(&sb, kv.Val, "    ")
			sb.WriteString(",\n")
		}
		sb.WriteString("  },\n")
	}
	sb.WriteString("}true\n")
	return []byte(sb.String())
}
