package profile

import (
	"fmt"
	"reflect"
	"strings"
)

type Kind string

const (
	KindString     Kind = "string"
	KindInteger    Kind = "integer"
	KindBoolean    Kind = "boolean"
	KindStringList Kind = "string_list"
	KindObjectList Kind = "object_list"
)

// Field describes one profile attribute. Key is both the JSON key the model
// returns and the column the attribute is stored in.
type Field struct {
	Key         string
	Kind        Kind
	Description string
}

// Fields is the complete attribute table, in prompt order.
var Fields = []Field{
	{"display_name", KindString, "Full name of the candidate as written on the résumé."},
	{"headline", KindString, "One-line professional headline, e.g. \"Senior Backend Engineer, payments\"."},
	{"summary", KindString, "Professional summary or objective paragraph, lightly condensed."},
	{"email", KindString, "Primary email address."},
	{"phone", KindString, "Primary phone number including country code when shown."},
	{"city", KindString, "City the candidate lives in."},
	{"country", KindString, "Country the candidate lives in."},
	{"timezone", KindString, "IANA timezone if stated or unambiguous from the location."},
	{"current_title", KindString, "Job title of the current or most recent position."},
	{"current_company", KindString, "Employer of the current or most recent position."},
	{"years_of_experience", KindInteger, "Total years of professional experience, as a whole number."},
	{"seniority_level", KindString, "One of: intern, junior, mid, senior, staff, principal, lead, manager, director, executive."},
	{"employment_history", KindObjectList, "Every position held, most recent first."},
	{"education", KindObjectList, "Degrees, diplomas and other formal education."},
	{"skills", KindStringList, "General professional skills."},
	{"programming_languages", KindStringList, "Programming languages."},
	{"frameworks", KindStringList, "Libraries and frameworks."},
	{"tools", KindStringList, "Tools, platforms and infrastructure."},
	{"spoken_languages", KindStringList, "Human languages spoken, with level when stated, e.g. \"German (C1)\"."},
	{"certifications", KindStringList, "Professional certifications."},
	{"notable_projects", KindObjectList, "Projects the candidate highlights."},
	{"publications", KindStringList, "Papers, articles or books authored."},
	{"awards", KindStringList, "Awards and honors."},
	{"interests", KindStringList, "Personal or professional interests."},
	{"website_url", KindString, "Personal website URL."},
	{"linkedin_url", KindString, "LinkedIn profile URL."},
	{"github_url", KindString, "GitHub profile URL."},
	{"twitter_url", KindString, "Twitter/X profile URL."},
	{"portfolio_url", KindString, "Portfolio URL (Behance, Dribbble, personal portfolio)."},
	{"open_to_work", KindBoolean, "True only if the résumé says the candidate is looking for a new role."},
	{"desired_roles", KindStringList, "Roles the candidate says they are targeting."},
	{"desired_salary_min", KindInteger, "Lower bound of the stated salary expectation, yearly, as a number."},
	{"desired_salary_max", KindInteger, "Upper bound of the stated salary expectation, yearly, as a number."},
	{"salary_currency", KindString, "ISO 4217 currency of the salary expectation."},
	{"work_authorization", KindString, "Stated work authorization, e.g. \"EU citizen\", \"US green card\"."},
	{"requires_visa_sponsorship", KindBoolean, "Whether the candidate states they need visa sponsorship."},
	{"willing_to_relocate", KindBoolean, "Whether the candidate states they are willing to relocate."},
	{"preferred_locations", KindStringList, "Locations the candidate prefers to work in."},
	{"remote_preference", KindString, "One of: remote, hybrid, onsite."},
	{"notice_period", KindString, "Stated notice period or availability, e.g. \"2 months\"."},
}

// OnboardingKeys is the narrow set requested when a résumé is used to
// prefill a new user's account.
var OnboardingKeys = []string{"current_title", "city", "country", "employment_history", "education", "skills"}

func FieldsFor(keys []string) []Field {
	byKey := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		byKey[f.Key] = f
	}
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		if f, ok := byKey[k]; ok {
			out = append(out, f)
		}
	}
	return out
}

func OnboardingFields() []Field {
	return FieldsFor(OnboardingKeys)
}

// IsKnownKey reports whether key names a profile attribute.
func IsKnownKey(key string) bool {
	_, ok := structIndex[key]
	return ok
}

// structIndex maps a JSON key to the Extraction struct field index.
var structIndex = func() map[string]int {
	t := reflect.TypeOf(Extraction{})
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		out[jsonKey(t.Field(i))] = i
	}
	return out
}()

func jsonKey(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}
	return strings.Split(tag, ",")[0]
}

func fieldValue(e *Extraction, key string) reflect.Value {
	i, ok := structIndex[key]
	if !ok {
		panic(fmt.Sprintf("profile: field %q missing from Extraction", key))
	}
	return reflect.ValueOf(e).Elem().Field(i)
}

// Value is one present attribute ready to be written.
type Value struct {
	Key   string
	Kind  Kind
	Value any
}

func present(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer:
		return !v.IsNil()
	case reflect.Slice:
		return v.Len() > 0
	default:
		return !v.IsZero()
	}
}

// FieldsExtracted lists the keys in fields that carry a value.
func FieldsExtracted(e Extraction, fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if present(fieldValue(&e, f.Key)) {
			out = append(out, f.Key)
		}
	}
	return out
}

// Values returns only the present attributes, dereferenced. Absent
// attributes never appear, so a write built from Values cannot null out a
// previously stored column.
func Values(e Extraction, fields []Field) []Value {
	out := make([]Value, 0, len(fields))
	for _, f := range fields {
		v := fieldValue(&e, f.Key)
		if !present(v) {
			continue
		}
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		out = append(out, Value{Key: f.Key, Kind: f.Kind, Value: v.Interface()})
	}
	return out
}

// Restrict returns a copy of e with every attribute outside fields cleared.
func Restrict(e Extraction, fields []Field) Extraction {
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f.Key] = true
	}
	out := e
	for key := range structIndex {
		if !keep[key] {
			v := fieldValue(&out, key)
			v.Set(reflect.Zero(v.Type()))
		}
	}
	return out
}
