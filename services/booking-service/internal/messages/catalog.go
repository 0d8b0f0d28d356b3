// Package messages holds the translated user-facing texts shown by the wizard.
package messages

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var bundled []byte

const DefaultLanguage = "es"

type Catalog struct {
	texts    map[string]map[string]string
	fallback string
}

// Load parses a YAML document of language -> key -> text.
func Load(raw []byte, fallback string) (*Catalog, error) {
	var texts map[string]map[string]string
	if err := yaml.Unmarshal(raw, &texts); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if _, ok := texts[fallback]; !ok {
		return nil, fmt.Errorf("message catalog has no %q section", fallback)
	}
	return &Catalog{texts: texts, fallback: fallback}, nil
}

// Bundled returns the catalog compiled into the binary.
func Bundled() *Catalog {
	c, err := Load(bundled, DefaultLanguage)
	if err != nil {
		panic(err)
	}
	return c
}

// Translator returns a translator for lang. Unknown languages use the
// fallback language; unknown keys translate to themselves.
func (c *Catalog) Translator(lang string) Translator {
	return Translator{catalog: c, lang: normalizeLang(lang)}
}

func (c *Catalog) lookup(lang, key string) string {
	if v, ok := c.texts[lang][key]; ok {
		return v
	}
	if v, ok := c.texts[c.fallback][key]; ok {
		return v
	}
	return key
}

type Translator struct {
	catalog *Catalog
	lang    string
}

func (t Translator) Translate(key string) string {
	return t.catalog.lookup(t.lang, key)
}

// normalizeLang reduces an Accept-Language value such as "en-US,en;q=0.9"
// to its primary tag.
func normalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = lang[:i]
	}
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}
