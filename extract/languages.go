package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// Language is a compiled language table entry.
type Language struct {
	Name      string
	Extension string
	MainFile  string

	markers   []*regexp.Regexp
	imports   []*regexp.Regexp
	libraries map[string]struct{}
	moduleSep string
}

// IsLibrary reports whether module is a known third-party or standard library.
func (l *Language) IsLibrary(module string) bool {
	_, ok := l.libraries[module]
	return ok
}

// FileName returns stem with the language extension appended.
func (l *Language) FileName(stem string) string {
	return stem + "." + l.Extension
}

// MarkerPath returns the path named by line if it is a file marker comment.
func (l *Language) MarkerPath(line string) (string, bool) {
	for _, re := range l.markers {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if path := m[re.SubexpIndex("path")]; path != "" {
			return path, true
		}
	}
	return "", false
}

// Languages is the compiled language table. It is immutable once built.
type Languages struct {
	entries  []*Language
	byName   map[string]*Language
	byExt    map[string]*Language
	fallback *Language
	path     *regexp.Regexp
}

// NewLanguages compiles table.
func NewLanguages(table chatcore.LanguageTable) (*Languages, error) {
	path, err := regexp.Compile(table.PathPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling path pattern: %w", err)
	}

	l := &Languages{
		byName: make(map[string]*Language),
		byExt:  make(map[string]*Language),
		path:   path,
	}

	for _, spec := range table.Entries {
		lang := &Language{
			Name:      strings.ToLower(spec.Name),
			Extension: strings.ToLower(spec.Extension),
			MainFile:  spec.MainFile,
			libraries: make(map[string]struct{}, len(spec.Libraries)),
			moduleSep: spec.ModuleSeparator,
		}
		for _, marker := range spec.Markers {
			re, err := regexp.Compile(table.ExpandMarker(marker))
			if err != nil {
				return nil, fmt.Errorf("language %s: compiling marker: %w", spec.Name, err)
			}
			lang.markers = append(lang.markers, re)
		}
		for _, imp := range spec.Imports {
			re, err := regexp.Compile(imp)
			if err != nil {
				return nil, fmt.Errorf("language %s: compiling import: %w", spec.Name, err)
			}
			lang.imports = append(lang.imports, re)
		}
		for _, lib := range spec.Libraries {
			lang.libraries[lib] = struct{}{}
		}

		l.entries = append(l.entries, lang)
		l.byName[lang.Name] = lang
		for _, alias := range spec.Aliases {
			l.byName[strings.ToLower(alias)] = lang
		}
		if _, ok := l.byExt[lang.Extension]; !ok {
			l.byExt[lang.Extension] = lang
		}
	}

	fallback, ok := l.byName[strings.ToLower(table.Default)]
	if !ok {
		return nil, fmt.Errorf("default language %q is not listed", table.Default)
	}
	l.fallback = fallback
	return l, nil
}

// Default is the language assigned when classification finds nothing.
func (l *Languages) Default() *Language {
	return l.fallback
}

// Named returns a listed language by canonical name or alias.
func (l *Languages) Named(name string) (*Language, bool) {
	lang, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]
	return lang, ok
}

// Resolve maps a fence tag to a language. Tags missing from the table are
// looked up in chroma's lexer registry; a tag nobody knows becomes its own
// language with the tag as extension.
func (l *Languages) Resolve(tag string) *Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if lang, ok := l.byName[tag]; ok {
		return lang
	}

	lexer := lexers.Get(tag)
	if lexer == nil {
		return adhocLanguage(tag, tag)
	}
	cfg := lexer.Config()
	name := strings.ReplaceAll(strings.ToLower(cfg.Name), " ", "_")
	if lang, ok := l.byName[name]; ok {
		return lang
	}
	for _, alias := range cfg.Aliases {
		if lang, ok := l.byName[strings.ToLower(alias)]; ok {
			return lang
		}
	}

	ext := tag
	for _, pattern := range cfg.Filenames {
		if e, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(e, "*?[") {
			ext = strings.ToLower(e)
			break
		}
	}
	return adhocLanguage(name, ext)
}

// KnownExtension reports whether ext (without the dot) is a source file
// extension, either listed in the table or recognized by chroma.
func (l *Languages) KnownExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if _, ok := l.byExt[ext]; ok {
		return true
	}
	return lexers.Match("file."+ext) != nil
}

// PathPattern matches path-like tokens.
func (l *Languages) PathPattern() *regexp.Regexp {
	return l.path
}

// All returns the listed languages in table order.
func (l *Languages) All() []*Language {
	return append([]*Language(nil), l.entries...)
}

func adhocLanguage(name, ext string) *Language {
	return &Language{
		Name:      name,
		Extension: ext,
		MainFile:  "main." + ext,
		libraries: map[string]struct{}{},
	}
}
