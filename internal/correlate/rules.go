package correlate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tradelens/internal/logger"
)

// RuleOverride is one operator-supplied classification rule loaded from
// the rules file. Overrides extend the built-in table; they cannot
// reorder or remove it.
type RuleOverride struct {
	Code     string   `yaml:"code"`
	Label    string   `yaml:"label"`
	Contains []string `yaml:"contains"`
}

type ruleFile struct {
	Rules []RuleOverride `yaml:"rules"`
}

const ruleSchemaJSON = `{
  "type": "object",
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "contains"],
        "properties": {
          "code": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "contains": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          }
        }
      }
    }
  }
}`

var ruleSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.json", strings.NewReader(ruleSchemaJSON)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("rules.json")
}()

// RuleSnapshot is an immutable view of the active classifier.
type RuleSnapshot struct {
	Version    int64
	LoadedAt   time.Time
	Classifier *Classifier
}

// RuleRegistry owns the classifier rule table and hot-reloads the
// override file when it changes. A registry without a path serves the
// built-in table forever.
type RuleRegistry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot RuleSnapshot
}

// NewRuleRegistry loads the override file (may be empty) and starts
// watching it for changes.
func NewRuleRegistry(path string) (*RuleRegistry, error) {
	r := &RuleRegistry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = RuleSnapshot{Version: 1, LoadedAt: time.Now(), Classifier: NewClassifier()}
		return r, nil
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules file failed: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("rules reload failed: %v", err)
		}
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// Snapshot returns the active classifier view.
func (r *RuleRegistry) Snapshot() RuleSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Classifier returns the active classifier.
func (r *RuleRegistry) Classifier() *Classifier {
	return r.Snapshot().Classifier
}

func (r *RuleRegistry) reload() error {
	overrides, err := readRuleFile(r.path)
	if err != nil {
		return err
	}
	rules := make([]Rule, 0, len(overrides))
	for _, o := range overrides {
		rules = append(rules, Rule{
			Code:     ReasonCode(strings.TrimSpace(o.Code)),
			Label:    strings.TrimSpace(o.Label),
			Contains: o.Contains,
		})
	}
	c := NewClassifier(rules...)
	r.mu.Lock()
	r.snapshot = RuleSnapshot{
		Version:    r.snapshot.Version + 1,
		LoadedAt:   time.Now(),
		Classifier: c,
	}
	r.mu.Unlock()
	logger.Infof("rule registry loaded %d override rules from %s", len(rules), filepath.Base(r.path))
	return nil
}

func readRuleFile(path string) ([]RuleOverride, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file failed: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse rules file failed: %w", err)
	}
	if generic != nil {
		if err := ruleSchema.Validate(normalizeYAML(generic)); err != nil {
			return nil, fmt.Errorf("rules file rejected by schema: %w", err)
		}
	}
	var cfg ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rules file failed: %w", err)
	}
	return cfg.Rules, nil
}

// normalizeYAML rewrites yaml map keys to strings so the jsonschema
// validator accepts the document.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAML(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAML(child)
		}
		return out
	default:
		return v
	}
}
