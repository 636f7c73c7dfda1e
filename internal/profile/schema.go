package profile

import (
	"reflect"
	"strings"
)

// JSONSchema builds a strict object schema for fields: every property is
// required and nullable, and no other properties are allowed.
func JSONSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Key] = propertySchema(f)
		required = append(required, f.Key)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func propertySchema(f Field) map[string]any {
	var s map[string]any
	switch f.Kind {
	case KindInteger:
		s = map[string]any{"type": []string{"integer", "null"}}
	case KindBoolean:
		s = map[string]any{"type": []string{"boolean", "null"}}
	case KindStringList:
		s = map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}}
	case KindObjectList:
		s = map[string]any{"type": []string{"array", "null"}, "items": itemSchema(f.Key)}
	default:
		s = map[string]any{"type": []string{"string", "null"}}
	}
	s["description"] = f.Description
	return s
}

func itemSchema(key string) map[string]any {
	t := reflect.TypeOf(Extraction{}).Field(structIndex[key]).Type.Elem()
	props := make(map[string]any, t.NumField())
	required := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonKey(sf)
		switch sf.Type.Kind() {
		case reflect.Bool:
			props[name] = map[string]any{"type": []string{"boolean", "null"}}
		case reflect.Slice:
			props[name] = map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}}
		default:
			props[name] = map[string]any{"type": []string{"string", "null"}}
		}
		required = append(required, name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Prompt asks the model for every attribute in fields at once.
func Prompt(markdown string, fields []Field) string {
	var b strings.Builder
	b.WriteString("You extract a candidate profile from a résumé that was converted to markdown page by page.\n")
	b.WriteString("Return one JSON object containing exactly the keys listed below.\n")
	b.WriteString("Use null for anything the document does not state. Do not guess, infer or invent values.\n")
	b.WriteString("Copy names, dates and URLs exactly as written. Dates use YYYY-MM when a month is given, otherwise YYYY.\n\n")
	b.WriteString("Keys:\n")
	for _, f := range fields {
		b.WriteString("- ")
		b.WriteString(f.Key)
		b.WriteString(" (")
		b.WriteString(kindLabel(f.Kind))
		b.WriteString("): ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	b.WriteString("\nRésumé:\n<<<\n")
	b.WriteString(strings.TrimSpace(markdown))
	b.WriteString("\n>>>\n")
	return b.String()
}

func kindLabel(k Kind) string {
	switch k {
	case KindStringList:
		return "array of strings"
	case KindObjectList:
		return "array of objects"
	default:
		return string(k)
	}
}
