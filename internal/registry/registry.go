// Package registry declares the fixed set of analysis tasks for a Sentinel run.
package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/skovert/sentinel/internal/models"
	"gopkg.in/yaml.v3"
)

// Registry holds the ordered, immutable task set. It is built once at
// startup and only read afterwards.
type Registry struct {
	tasks []models.Task
}

// manifest is the YAML shape of a task file.
type manifest struct {
	Tasks []manifestTask `yaml:"tasks"`
}

type manifestTask struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	Prompt  string `yaml:"prompt"`
	Timeout string `yaml:"timeout,omitempty"`
}

// promptPreamble instructs the model to answer in the finding grammar the
// parser understands. Kept identical across tasks so outputs stay uniform.
const promptPreamble = `You are reviewing a codebase. Report each problem you find on its own line in exactly this format:
[PRIORITY] Short title | file:line | concrete remediation
where PRIORITY is one of CRITICAL, HIGH, MEDIUM, LOW. Lines in any other format are ignored.

`

// DefaultTasks returns the built-in three-model review ensemble used when no
// manifest is supplied.
func DefaultTasks(defaultTimeout time.Duration) []models.Task {
	return []models.Task{
		{
			Name:    "security",
			Model:   "qwen2.5-coder:7b",
			Prompt:  promptPreamble + "Focus on security: injection, authentication, secrets handling, unsafe input.",
			Timeout: defaultTimeout,
		},
		{
			Name:    "quality",
			Model:   "deepseek-r1:8b",
			Prompt:  promptPreamble + "Focus on correctness and code quality: error handling, resource leaks, race conditions.",
			Timeout: defaultTimeout,
		},
		{
			Name:    "architecture",
			Model:   "llama3.1:8b",
			Prompt:  promptPreamble + "Focus on architecture: coupling, layering violations, missing abstractions.",
			Timeout: defaultTimeout,
		},
	}
}

// New builds a registry from the given tasks after validating them.
func New(tasks []models.Task) (*Registry, error) {
	if err := validate(tasks); err != nil {
		return nil, err
	}
	// Copy so callers cannot mutate the registered set.
	owned := make([]models.Task, len(tasks))
	copy(owned, tasks)
	return &Registry{tasks: owned}, nil
}

// LoadFile builds a registry from a YAML manifest. Tasks without a timeout
// inherit defaultTimeout.
func LoadFile(path string, defaultTimeout time.Duration) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse task manifest: %w", err)
	}

	tasks := make([]models.Task, 0, len(m.Tasks))
	for _, mt := range m.Tasks {
		task := models.Task{
			Name:    mt.Name,
			Model:   mt.Model,
			Prompt:  mt.Prompt,
			Timeout: defaultTimeout,
		}
		if mt.Timeout != "" {
			d, err := time.ParseDuration(mt.Timeout)
			if err != nil {
				return nil, fmt.Errorf("task %q: parse timeout: %w", mt.Name, err)
			}
			task.Timeout = d
		}
		tasks = append(tasks, task)
	}

	return New(tasks)
}

// List returns the registered tasks in declaration order.
func (r *Registry) List() []models.Task {
	out := make([]models.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.tasks)
}

// validate enforces the registration invariants: at least one task, unique
// non-empty names, non-empty model and prompt, positive timeout.
func validate(tasks []models.Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks registered")
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return fmt.Errorf("task with empty name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate task name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Model == "" {
			return fmt.Errorf("task %q: empty model", t.Name)
		}
		if t.Prompt == "" {
			return fmt.Errorf("task %q: empty prompt", t.Name)
		}
		if t.Timeout <= 0 {
			return fmt.Errorf("task %q: timeout must be positive, got %s", t.Name, t.Timeout)
		}
	}
	return nil
}
