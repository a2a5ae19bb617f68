package whisper

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Hints maps a language code to the vocabulary hint passed to the engine
// when disfluency retention is enabled. Languages without an entry get no
// hint at all.
type Hints map[string]string

// LoadHints reads the per-language hint table (a flat YAML mapping). A
// missing file is not an error; it yields an empty table.
func LoadHints(path string) (Hints, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Hints{}, nil
		}
		return nil, fmt.Errorf("reading hint table: %w", err)
	}
	var hints Hints
	if err := yaml.Unmarshal(raw, &hints); err != nil {
		return nil, fmt.Errorf("parsing hint table: %w", err)
	}
	if hints == nil {
		hints = Hints{}
	}
	return hints, nil
}

// For returns the hint for a language code, or "" when none exists.
func (h Hints) For(lang string) string {
	return h[lang]
}

// NormalizeLanguage validates a user-selected language code and returns
// its base form (e.g. "en-US" -> "en"). "auto" passes through unchanged.
func NormalizeLanguage(code string) (string, error) {
	if code == "" || strings.EqualFold(code, "auto") {
		return "auto", nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
