package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var locales embed.FS

var (
	mu           sync.RWMutex
	translations = make(map[string]map[string]string)
)

var DefaultLang = "en"

func init() {
	if err := LoadTranslations(locales, "locales"); err != nil {
		panic(fmt.Sprintf("loading embedded translations: %v", err))
	}
}

// LoadTranslations reads every <lang>.json under dir in fsys, replacing tables
// already loaded for the same languages.
func LoadTranslations(fsys fs.FS, dir string) error {
	files, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		lang := strings.TrimSuffix(path.Base(file), ".json")

		mu.Lock()
		translations[lang] = t
		mu.Unlock()
	}
	return nil
}

func T(lang, key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return lookup(lang, key)
}

func lookup(lang, key string) string {
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to English
	if lang != DefaultLang {
		return lookup(DefaultLang, key)
	}
	return key
}

func DetectLanguage(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return DefaultLang
	}

	mu.RLock()
	defer mu.RUnlock()

	// Example: fr-CH, fr;q=0.9, en;q=0.8, de;q=0.7, *;q=0.5
	for _, part := range strings.Split(accept, ",") {
		lang := strings.ToLower(strings.TrimSpace(strings.Split(part, ";")[0]))
		if len(lang) >= 2 {
			lang = lang[:2] // e.g., "en-US" -> "en"
			if _, ok := translations[lang]; ok {
				return lang
			}
		}
	}
	return DefaultLang
}
