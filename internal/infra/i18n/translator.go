package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when a requested catalog does not exist.
const DefaultLanguage = "en"

//go:embed locales
var LocalesFS embed.FS

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

// ForLanguage returns the embedded catalog for langCode, or the default one
// when langCode is unknown.
func ForLanguage(langCode string) (*Translator, error) {
	t, err := NewTranslator(LocalesFS, langCode)
	if err == nil {
		return t, nil
	}
	return NewTranslator(LocalesFS, DefaultLanguage)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T formats the message for key with args. Unknown keys are returned as is.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
