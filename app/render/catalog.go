package render

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-reader/app/reader"
)

//go:embed messages.yml
var defaultMessages []byte

// Messages is the per-language section of a messages file.
type Messages struct {
	Errors map[reader.ErrorCode]string `yaml:"errors"`
	Labels map[string]string           `yaml:"labels"`
}

// Catalog maps error codes and UI labels to human-readable text per language.
type Catalog struct {
	fallback language.Tag
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]*Messages
	mu       sync.RWMutex
}

// NewCatalog loads the built-in messages. defaultLang is used when
// negotiation finds nothing better and as the first lookup fallback.
func NewCatalog(defaultLang string) (*Catalog, error) {
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	c := &Catalog{
		fallback: fallback,
		messages: make(map[language.Tag]*Messages),
	}
	if err := c.merge(defaultMessages); err != nil {
		return nil, fmt.Errorf("failed to load built-in messages: %w", err)
	}
	return c, nil
}

// LoadFile overlays messages from a YAML file. Keys it does not mention keep
// their current text.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := c.merge(data); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	slog.Debug("Messages loaded", "file", path, "languages", len(c.Languages()))
	return nil
}

func (c *Catalog) merge(data []byte) error {
	var raw map[string]*Messages
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// All keys are checked before anything is applied.
	sections := make(map[language.Tag]*Messages, len(raw))
	for key, section := range raw {
		if section == nil {
			continue
		}
		tag, err := language.Parse(key)
		if err != nil {
			return fmt.Errorf("invalid language %q: %w", key, err)
		}
		sections[tag] = section
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for tag, section := range sections {
		current, ok := c.messages[tag]
		if !ok {
			current = &Messages{
				Errors: make(map[reader.ErrorCode]string),
				Labels: make(map[string]string),
			}
			c.messages[tag] = current
		}
		for code, text := range section.Errors {
			current.Errors[code] = text
		}
		for name, text := range section.Labels {
			current.Labels[name] = text
		}
	}

	c.rebuildMatcher()
	return nil
}

// rebuildMatcher puts the fallback first so it wins when nothing matches.
func (c *Catalog) rebuildMatcher() {
	tags := make([]language.Tag, 0, len(c.messages)+1)
	tags = append(tags, c.fallback)
	others := make([]language.Tag, 0, len(c.messages))
	for tag := range c.messages {
		if tag != c.fallback {
			others = append(others, tag)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })
	tags = append(tags, others...)

	c.tags = tags
	c.matcher = language.NewMatcher(tags)
}

// Languages lists the loaded languages, fallback first.
func (c *Catalog) Languages() []language.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]language.Tag(nil), c.tags...)
}

// Negotiate picks the best loaded language for an Accept-Language header.
func (c *Catalog) Negotiate(acceptLanguage string) language.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if acceptLanguage == "" {
		return c.fallback
	}
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(desired...)
	if confidence == language.No {
		return c.fallback
	}
	return c.tags[index]
}

// Message returns the text for kind in lang. Unknown errors carrying a
// diagnostic show it; missing entries fall back to the default language and
// then to the code itself. A nil kind has no message.
func (c *Catalog) Message(kind *reader.ErrorKind, lang language.Tag) string {
	if kind == nil {
		return ""
	}
	if kind.Code == reader.CodeUnknown && kind.Message != "" {
		return kind.Message
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tag := range []language.Tag{lang, c.fallback} {
		if m, ok := c.messages[tag]; ok {
			if text, ok := m.Errors[kind.Code]; ok {
				return text
			}
		}
	}
	return string(kind.Code)
}

// Label returns UI text by name with the same fallback order as Message.
func (c *Catalog) Label(name string, lang language.Tag) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tag := range []language.Tag{lang, c.fallback} {
		if m, ok := c.messages[tag]; ok {
			if text, ok := m.Labels[name]; ok {
				return text
			}
		}
	}
	return name
}

// Labels returns every label for lang, filled from the fallback language.
func (c *Catalog) Labels(lang language.Tag) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	labels := make(map[string]string)
	if m, ok := c.messages[c.fallback]; ok {
		for name, text := range m.Labels {
			labels[name] = text
		}
	}
	if m, ok := c.messages[lang]; ok {
		for name, text := range m.Labels {
			labels[name] = text
		}
	}
	return labels
}
