// Package locale loads the message catalogs used for every user-facing string.
//
// Catalogs are YAML files embedded in the binary. Nested keys are flattened
// into dotted paths ("wash.good", "alerts.ice") and values may contain named
// placeholders written as {name}.
package locale

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages/*.yaml
var messagesFS embed.FS

const DefaultLanguage = "ru"

// Catalog is an immutable key -> template mapping for one language.
type Catalog struct {
	lang     string
	messages map[string]string
}

// Load returns the embedded catalog for lang.
func Load(lang string) (*Catalog, error) {
	data, err := messagesFS.ReadFile("messages/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown language %q: %w", lang, err)
	}
	return Parse(lang, data)
}

// MustLoad is Load for catalogs known to be embedded.
func MustLoad(lang string) *Catalog {
	c, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from raw YAML.
func Parse(lang string, data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", lang, err)
	}
	c := &Catalog{lang: lang, messages: make(map[string]string)}
	if err := flatten("", raw, c.messages); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", lang, err)
	}
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		case int, float64, bool:
			out[key] = fmt.Sprint(val)
		default:
			return fmt.Errorf("key %s: unsupported value type %T", key, v)
		}
	}
	return nil
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := messagesFS.ReadDir("messages")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

func (c *Catalog) Lang() string { return c.lang }

// Has reports whether key exists in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// Keys returns all keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.messages))
	for k := range c.messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get renders the template for key with params substituted. A missing key
// renders as the key itself; placeholders without a param are left intact.
func (c *Catalog) Get(key string, params map[string]any) string {
	tmpl, ok := c.messages[key]
	if !ok {
		return key
	}
	if len(params) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		end += open
		name := tmpl[open+1 : end]
		b.WriteString(tmpl[:open])
		if v, ok := params[name]; ok {
			b.WriteString(formatParam(v))
		} else {
			b.WriteString(tmpl[open : end+1])
		}
		tmpl = tmpl[end+1:]
	}
	return b.String()
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}
