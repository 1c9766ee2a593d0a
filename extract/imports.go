package extract

import (
	"path"
	"sort"
	"strings"
)

// Imports returns the modules imported by code, in source order.
func Imports(lang *Language, code string) []string {
	type hit struct {
		pos    int
		module string
	}

	var hits []hit
	seen := make(map[int]bool)
	for _, re := range lang.imports {
		for _, m := range re.FindAllStringSubmatchIndex(code, -1) {
			if len(m) < 4 || m[2] < 0 || seen[m[2]] {
				continue
			}
			seen[m[2]] = true
			hits = append(hits, hit{pos: m[2], module: code[m[2]:m[3]]})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	modules := make([]string, len(hits))
	for i, h := range hits {
		modules[i] = h.module
	}
	return modules
}

// LocalImports returns the imports of code that may name another file of the
// response, as extension-less paths. Known libraries, scoped packages and
// files of other languages are dropped.
func LocalImports(lang *Language, code string) []string {
	var local []string
	for _, module := range Imports(lang, code) {
		if lang.IsLibrary(module) || strings.HasPrefix(module, "@") || strings.Contains(module, ":") {
			continue
		}
		if lang.moduleSep != "" && lang.IsLibrary(strings.SplitN(module, lang.moduleSep, 2)[0]) {
			continue
		}
		if ext := path.Ext(module); lang.moduleSep == "" && ext != "" && ext != "."+lang.Extension {
			// a stylesheet or asset, not another file of this language
			continue
		}
		if stem := importStem(lang, module); stem != "" {
			local = append(local, stem)
		}
	}
	return local
}

func importStem(lang *Language, module string) string {
	if lang.moduleSep != "" && !strings.Contains(module, "/") {
		module = strings.ReplaceAll(module, lang.moduleSep, "/")
	}

	module = path.Clean(module)
	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(module, "./"), "../")
		if trimmed == module {
			break
		}
		module = trimmed
	}
	module = strings.TrimSuffix(module, "."+lang.Extension)
	if module == "." || module == ".." {
		return ""
	}
	return module
}
