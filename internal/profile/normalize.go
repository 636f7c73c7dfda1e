package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"resumeflow/internal/util"
)

var ErrSchemaValidation = errors.New("structured output failed schema validation")

var absentSentinels = map[string]bool{
	"":              true,
	"null":          true,
	"nil":           true,
	"none":          true,
	"n/a":           true,
	"na":            true,
	"-":             true,
	"unknown":       true,
	"not specified": true,
	"not provided":  true,
	"not mentioned": true,
	"not available": true,
}

func isAbsent(s string) bool {
	return absentSentinels[strings.ToLower(strings.TrimSpace(s))]
}

// DecodeStrict parses a model response into an Extraction. Unknown keys and
// type mismatches are rejected with ErrSchemaValidation.
func DecodeStrict(raw []byte) (Extraction, error) {
	raw = []byte(util.StripCodeFence(string(raw)))
	if len(raw) == 0 || raw[0] != '{' {
		return Extraction{}, fmt.Errorf("%w: response is not a json object", ErrSchemaValidation)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var e Extraction
	if err := dec.Decode(&e); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if dec.More() {
		return Extraction{}, fmt.Errorf("%w: trailing data after json object", ErrSchemaValidation)
	}
	return e, nil
}

// Normalize turns every "no value" the model may emit into an absent
// attribute: blank or sentinel strings, negative numbers, empty lists and
// list items with no content. List items are trimmed and de-duplicated.
func Normalize(e Extraction) Extraction {
	v := reflect.ValueOf(&e).Elem()
	for i := 0; i < v.NumField(); i++ {
		normalizeTop(v.Field(i))
	}
	return e
}

func normalizeTop(f reflect.Value) {
	switch f.Kind() {
	case reflect.Pointer:
		if f.IsNil() {
			return
		}
		el := f.Elem()
		switch el.Kind() {
		case reflect.String:
			s := strings.TrimSpace(el.String())
			if isAbsent(s) {
				f.Set(reflect.Zero(f.Type()))
				return
			}
			f.Set(reflect.ValueOf(&s))
		case reflect.Int:
			if el.Int() < 0 {
				f.Set(reflect.Zero(f.Type()))
			}
		}
	case reflect.Slice:
		if f.Type().Elem().Kind() == reflect.String {
			f.Set(reflect.ValueOf(cleanStrings(f.Interface().([]string))))
			return
		}
		f.Set(cleanObjects(f))
	}
}

func cleanStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if isAbsent(s) {
			continue
		}
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// cleanObjects normalizes the string members of each item and drops items
// left with no content.
func cleanObjects(slice reflect.Value) reflect.Value {
	if slice.Len() == 0 {
		return reflect.Zero(slice.Type())
	}
	out := reflect.MakeSlice(slice.Type(), 0, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		item := reflect.New(slice.Type().Elem()).Elem()
		item.Set(slice.Index(i))
		for j := 0; j < item.NumField(); j++ {
			f := item.Field(j)
			switch f.Kind() {
			case reflect.String:
				s := strings.TrimSpace(f.String())
				if isAbsent(s) {
					s = ""
				}
				f.SetString(s)
			case reflect.Slice:
				if f.Type().Elem().Kind() == reflect.String {
					f.Set(reflect.ValueOf(cleanStrings(f.Interface().([]string))))
				}
			}
		}
		if !item.IsZero() {
			out = reflect.Append(out, item)
		}
	}
	if out.Len() == 0 {
		return reflect.Zero(slice.Type())
	}
	return out
}
