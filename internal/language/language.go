package language

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"scribe/internal/services"
	"scribe/internal/worker"
)

//go:embed mappings.yaml
var mappingsYAML []byte

// Language is one supported language and the code each model expects.
type Language struct {
	Code     string `yaml:"code" json:"code"`
	ISO3     string `yaml:"iso3" json:"iso3"`
	Alt3     string `yaml:"alt3,omitempty" json:"-"`
	Name     string `yaml:"name" json:"name"`
	Whisper  string `yaml:"whisper,omitempty" json:"whisper,omitempty"`
	MBART    string `yaml:"mbart,omitempty" json:"mbart,omitempty"`
	Seamless string `yaml:"seamless,omitempty" json:"seamless,omitempty"`
}

type table struct {
	Languages []Language `yaml:"languages"`
}

var (
	languages []Language
	byKey     map[string]int
)

func init() {
	var t table
	if err := yaml.Unmarshal(mappingsYAML, &t); err != nil {
		panic(fmt.Sprintf("language: parse embedded mappings: %v", err))
	}
	languages = t.Languages
	byKey = make(map[string]int, len(languages)*6)
	for i, l := range languages {
		for _, key := range []string{l.Code, l.ISO3, l.Alt3, l.Name, l.MBART, l.Seamless} {
			if key = strings.ToLower(key); key != "" {
				if _, taken := byKey[key]; !taken {
					byKey[key] = i
				}
			}
		}
	}
}

// Normalize resolves a language given as an ISO 639-1 or 639-2 code, a
// locale such as en_US or en-US, a model-specific code, or an English name.
func Normalize(input string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return Language{}, invalid("normalize", "language is required")
	}
	if i, ok := byKey[key]; ok {
		return languages[i], nil
	}
	if base, _, ok := strings.Cut(strings.ReplaceAll(key, "_", "-"), "-"); ok {
		if i, ok := byKey[base]; ok {
			return languages[i], nil
		}
	}
	if tag, err := xlanguage.Parse(strings.ReplaceAll(key, "_", "-")); err == nil {
		base, _ := tag.Base()
		if i, ok := byKey[base.String()]; ok {
			return languages[i], nil
		}
	}
	return Language{}, invalid("normalize", fmt.Sprintf("unsupported language %q", input))
}

// ForModel returns the code model expects for the language in input.
func ForModel(input, model string) (string, error) {
	lang, err := Normalize(input)
	if err != nil {
		return "", err
	}
	code, err := lang.CodeFor(model)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", invalid("map", fmt.Sprintf("language %q not supported by model %q", input, model))
	}
	return code, nil
}

// CodeFor returns the model-specific code, empty when unsupported.
func (l Language) CodeFor(model string) (string, error) {
	switch strings.ToLower(model) {
	case worker.ModelWhisper:
		return l.Whisper, nil
	case worker.ModelMBART:
		return l.MBART, nil
	case worker.ModelSeamless:
		return l.Seamless, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "language", "map",
			fmt.Sprintf("unknown model %q", model), nil)
	}
}

// Supported lists the languages model accepts, ordered by code.
func Supported(model string) ([]Language, error) {
	var out []Language
	for _, l := range languages {
		code, err := l.CodeFor(model)
		if err != nil {
			return nil, err
		}
		if code != "" {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// All returns every known language.
func All() []Language {
	return append([]Language(nil), languages...)
}

// DisplayName returns the English name of a language, "Unknown" for empty
// input, or the uppercased input when it is not recognised.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	lang, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return lang.Name
}

// NativeName returns the language's name in its own language, falling back
// to the English name.
func (l Language) NativeName() string {
	tag, err := xlanguage.Parse(l.Code)
	if err != nil {
		return l.Name
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return l.Name
}

func invalid(operation, message string) error {
	return services.Wrap(services.ErrValidation, "language", operation, message, nil)
}
