package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/haowjy/meridian-chat-core"
)

func targetsFor(t *testing.T, input string) []*Target {
	t.Helper()
	langs := newTestLanguages(t)
	segments := NewParser(langs, NewClassifier(langs)).Parse(input)
	return Targets(langs, segments)
}

func names(targets []*Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Name
	}
	return out
}

func TestLeadingComment(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"line comment", "```js\n// utils/helpers.js\nexport const x = 1\n```", "utils/helpers.js", true},
		{"file prefix", "```javascript\n// File: app.js\nlet a\n```", "app.js", true},
		{"block comment", "```css\n/* theme.css */\nbody {}\n```", "theme.css", true},
		{"hash comment", "```python\n\n# tools/run.py\nprint(1)\n```", "tools/run.py", true},
		{"plain comment", "```js\n// just a comment\nlet a\n```", "", false},
		{"marker not on first line", "```js\nlet a\n// app.js\n```", "", false},
		{"sentence mentioning a file", "```js\n// see README.md for details\n```", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := targetsFor(t, tt.input)
			require.Len(t, targets, 1)
			name, ok := LeadingComment{}.Resolve(targets[0], targets)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestPrecedingText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"named in sentence", "Here is script.js shown below:\n```javascript\nconsole.log(1)\n```", "script.js", true},
		{"quoted path", "\"project/config.js\":\n```js\nlet x\n```", "project/config.js", true},
		{"last mention wins", "Update main.js, then utils.js:\n```js\nlet x\n```", "utils.js", true},
		{"matching extension wins", "Put styles.css next to app.js:\n```css\np {}\n```", "styles.css", true},
		{"other extension as fallback", "Save this as app.py:\n```js\nlet x\n```", "app.py", true},
		{"urls are ignored", "See https://cdn.example.com/lib.js first:\n```js\nlet x\n```", "", false},
		{"url then path", "See https://example.com/app.js, then write main.js:\n```js\nlet x\n```", "main.js", true},
		{"unknown extension", "Saved as notes.zzqx:\n```js\nlet x\n```", "", false},
		{"no preceding text", "```js\nlet x\n```", "", false},
	}

	langs := newTestLanguages(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := targetsFor(t, tt.input)
			require.Len(t, targets, 1)
			name, ok := NewPrecedingText(langs).Resolve(targets[0], targets)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestPrecedingText_OnlyImmediateText(t *testing.T) {
	targets := targetsFor(t, "app.js:\n```js\nlet a\n```\n```js\nlet b\n```")
	require.Len(t, targets, 2)
	assert.NotNil(t, targets[0].Preceding)
	assert.Nil(t, targets[1].Preceding)
}

func TestImportPairing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "first imports the second",
			input: "```javascript\nimport x from 'utils'\n```\n```javascript\nconsole.log(x)\n```",
			want:  []string{"main.js", "utils.js"},
		},
		{
			name:  "second imports the first",
			input: "```javascript\nconsole.log```\n```javascript\nimport x from 'utils'```",
			want:  []string{"utils.js", "main.js"},
		},
		{
			name: "library imports are ignored",
			input: "```javascript\nconsole.log\n```\n```javascript\n" +
				"import React from \"react\";\nimport 'utils';\nimport { createStore } from \"redux\";\n```",
			want: []string{"utils.js", "main.js"},
		},
		{
			name: "multi line import",
			input: "```javascript\nconsole.log\n```\n```javascript\n" +
				"import React, { Component } from 'react'\nimport {\n    x, y\n} from './utils.js'\n```",
			want: []string{"utils.js", "main.js"},
		},
		{
			name:  "python module",
			input: "```python\nfrom helpers.io import load\nprint(load())\n```\n```python\ndef load():\n    return 1\n```",
			want:  []string{"main.py", "helpers/io.py"},
		},
		{
			name:  "no imports",
			input: "```javascript\nconsole.log```\n```javascript\nconst x = 23```",
			want:  []string{"", ""},
		},
		{
			name:  "circular imports",
			input: "```js\nimport a from './b'\n```\n```js\nimport b from './a'\n```",
			want:  []string{"", ""},
		},
		{
			name:  "three segments",
			input: "```js\nimport a from './b'\n```\n```js\nlet b\n```\n```js\nlet c\n```",
			want:  []string{"", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := targetsFor(t, tt.input)
			require.Len(t, targets, len(tt.want))
			for i, target := range targets {
				name, ok := ImportPairing{}.Resolve(target, targets)
				assert.Equal(t, tt.want[i] != "", ok)
				assert.Equal(t, tt.want[i], name)
			}
		})
	}
}

func TestImportPairing_RequiresBothUnnamed(t *testing.T) {
	targets := targetsFor(t, "```js\nimport x from 'utils'\n```\n```js\nlet y\n```")
	targets[1].Name = "lib.js"

	_, ok := ImportPairing{}.Resolve(targets[0], targets)
	assert.False(t, ok)
}

func TestPositional(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single script", "```javascript\nconsole.log('hi')\n```", []string{"main.js"}},
		{
			name:  "three scripts",
			input: "```js\nlet a\n```\n```js\nlet b\n```\n```js\nlet c\n```",
			want:  []string{"untitled_0.js", "untitled_1.js", "untitled_2.js"},
		},
		{
			name:  "one per language",
			input: "```js\nlet a\n```\n```css\np {}\n```\n```python\nprint(1)\n```",
			want:  []string{"main.js", "styles.css", "main.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := targetsFor(t, tt.input)
			NewResolver(Positional{}).Resolve(targets)
			assert.Equal(t, tt.want, names(targets))
		})
	}
}

func TestPositional_MainFileClaimed(t *testing.T) {
	targets := targetsFor(t, "main.js:\n```javascript\nconsole.log```\n```javascript\nconst x = 23```")
	NewResolver(DefaultStrategies(newTestLanguages(t))...).Resolve(targets)

	assert.Equal(t, []string{"main.js", "untitled_0.js"}, names(targets))
	assert.Equal(t, "preceding_text", targets[0].Strategy)
	assert.Equal(t, "positional", targets[1].Strategy)
}

func TestResolver_FirstMatchWins(t *testing.T) {
	input := "Save it as other.js:\n```js\n// real.js\nlet a\n```"
	targets := targetsFor(t, input)
	NewResolver(DefaultStrategies(newTestLanguages(t))...).Resolve(targets)

	assert.Equal(t, "real.js", targets[0].Name)
	assert.Equal(t, "leading_comment", targets[0].Strategy)
}

func TestResolver_Collisions(t *testing.T) {
	input := "```js\n// app.js\nlet a\n```\n```js\n// app.js\nlet b\n```\n```js\n// app.js\nlet c\n```\n```js\n// app_1.js\nlet d\n```"
	targets := targetsFor(t, input)
	NewResolver(DefaultStrategies(newTestLanguages(t))...).Resolve(targets)

	assert.Equal(t, []string{"app.js", "app_1.js", "app_2.js", "app_1_1.js"}, names(targets))
}

func TestResolver_Deterministic(t *testing.T) {
	input := "Intro main.js:\n```js\nimport u from './u'\n```\n```js\nlet u\n```\n```css\n/* a.css */\np{}\n```\n```py\nprint(1)\n```\n```py\nprint(2)\n```"
	langs := newTestLanguages(t)

	resolve := func() []string {
		targets := targetsFor(t, input)
		NewResolver(DefaultStrategies(langs)...).Resolve(targets)
		return names(targets)
	}

	first := resolve()
	for range 10 {
		assert.Equal(t, first, resolve())
	}
	assert.Equal(t, []string{"main.js", "untitled_0.js", "a.css", "untitled_0.py", "untitled_1.py"}, first)
}

func TestPathCandidates(t *testing.T) {
	langs := newTestLanguages(t)
	got := PathCandidates(langs, "Open src/app.ts and http://x.io/y.js, then styles.css or notes.zzqx")
	assert.Equal(t, []string{"src/app.ts", "styles.css"}, got)
}

func TestTargets_Grouping(t *testing.T) {
	targets := targetsFor(t, "hi\n```js\nlet a\n```\nthere\n```css\np{}\n```\n```javascript\nlet b\n```")
	require.Len(t, targets, 3)

	assert.Equal(t, []int{1, 3, 4}, []int{targets[0].Position, targets[1].Position, targets[2].Position})
	assert.Len(t, targets[0].Siblings, 2)
	assert.Same(t, targets[0].Siblings[1], targets[2])
	assert.Len(t, targets[1].Siblings, 1)
	assert.Equal(t, chatcore.SegmentText, targets[1].Preceding.Kind)
}
