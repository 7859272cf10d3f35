package styles

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var defaultPrompts = map[Style]string{
	OilPainting: "oil painting style, classical art, painted with oil on canvas",
	Anime:       "anime style, manga, japanese animation art",
	PixelArt:    "pixel art style, 8-bit, retro gaming aesthetic",
	Watercolor:  "watercolor painting, soft colors, flowing paint",
	VanGogh:     "in the style of Van Gogh, post-impressionist, swirling brushstrokes",
	Cyberpunk:   "cyberpunk style, neon colors, futuristic, sci-fi aesthetic",
}

// PromptTable resolves style names to diffusion prompts. The zero value is
// not usable; use NewPromptTable or LoadPromptTable.
type PromptTable struct {
	mu      sync.RWMutex
	prompts map[string]string
}

// NewPromptTable returns the built-in prompts.
func NewPromptTable() *PromptTable {
	t := &PromptTable{prompts: make(map[string]string, len(defaultPrompts))}
	for s, p := range defaultPrompts {
		t.prompts[string(s)] = p
	}
	return t
}

// promptFile is the YAML layout of a prompt override file:
//
//	prompts:
//	  anime: "studio ghibli style, soft cel shading"
//	  sketch: "pencil sketch, graphite on paper"
type promptFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadPromptTable returns the built-in prompts overlaid with the entries
// of the YAML file at path. An empty path returns the built-ins.
func LoadPromptTable(path string) (*PromptTable, error) {
	t := NewPromptTable()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("styles: read prompt file: %w", err)
	}
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("styles: parse prompt file %s: %w", path, err)
	}
	for name, prompt := range f.Prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue
		}
		t.Set(name, prompt)
	}
	return t, nil
}

// Set overrides the prompt for a style name.
func (t *PromptTable) Set(name, prompt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompts[strings.TrimSpace(name)] = prompt
}

// Prompt returns the prompt for name, matched exactly. A name without an
// entry is used verbatim as its own prompt.
func (t *PromptTable) Prompt(name string) string {
	t.mu.RLock()
	p, ok := t.prompts[name]
	t.mu.RUnlock()
	if ok {
		return p
	}
	return name
}

// BuildPrompt returns the prompt for name followed by ", custom" when custom
// is not blank.
func (t *PromptTable) BuildPrompt(name, custom string) string {
	prompt := t.Prompt(name)
	if custom = strings.TrimSpace(custom); custom != "" {
		prompt += ", " + custom
	}
	return prompt
}

// Entries returns a copy of the table.
func (t *PromptTable) Entries() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.prompts))
	for k, v := range t.prompts {
		out[k] = v
	}
	return out
}

var builtin = NewPromptTable()

// Prompt returns the built-in prompt for s.
func Prompt(s Style) string {
	return builtin.Prompt(string(s))
}

// BuildPrompt uses the built-in table; see PromptTable.BuildPrompt.
func BuildPrompt(name, custom string) string {
	return builtin.BuildPrompt(name, custom)
}
