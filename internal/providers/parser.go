package providers

import "strings"

// ProviderRef is one entry of a provider list, written name[:key-alias][@model].
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
	// Model overrides the provider's default model when set.
	Model string
}

// ParseProviderList accepts "|" or "," separated entries. An empty list
// yields the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p}
		entry := p
		if i := strings.LastIndex(entry, "@"); i > 0 {
			ref.Model = strings.TrimSpace(entry[i+1:])
			entry = entry[:i]
		}
		name, alias, _ := strings.Cut(entry, ":")
		ref.Name = strings.ToLower(strings.TrimSpace(name))
		ref.KeyAlias = strings.TrimSpace(alias)
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
