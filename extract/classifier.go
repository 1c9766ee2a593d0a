package extract

import "regexp"

// probe assigns lang to code matching re.
type probe struct {
	lang string
	re   *regexp.Regexp
}

var (
	printCall = regexp.MustCompile(`(?:^|[^\w.$])print\s*\(`)

	scriptSyntax = regexp.MustCompile(
		`\bfunction\b[\s\w$]*\(` + // declarations and function expressions
			`|\b(?:const|let|var)\s+[A-Za-z_$][\w$]*\s*=` + // variable declarations
			`|=>` + // arrow functions
			`|\bconsole\.log\b`)
)

// Classifier guesses the language of untagged code. Probes run in order and
// the first match wins; code matching none gets the table default.
type Classifier struct {
	langs  *Languages
	probes []probe
}

// NewClassifier returns the classifier over langs.
func NewClassifier(langs *Languages) *Classifier {
	return &Classifier{
		langs: langs,
		probes: []probe{
			{lang: "python", re: printCall},
			{lang: "javascript", re: scriptSyntax},
		},
	}
}

// Classify returns the language of code. It never fails.
func (c *Classifier) Classify(code string) *Language {
	for _, p := range c.probes {
		if !p.re.MatchString(code) {
			continue
		}
		if lang, ok := c.langs.Named(p.lang); ok {
			return lang
		}
	}
	return c.langs.Default()
}
