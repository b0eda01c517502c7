package collection

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.followtheprocess.codes/restcli/internal/document"
)

// ErrBadEnvArg is returned when an environment argument is neither KEY:VALUE nor !KEY.
var ErrBadEnvArg = errors.New("env args must have the format KEY:VALUE or !KEY")

// Environment is the set of variables available to request templates.
type Environment struct {
	// Vars are the environment variables, in file order
	Vars *document.Mapping

	// Source is the file the environment was loaded from, empty if there is none
	Source string
}

// NewEnvironment returns an empty [Environment] with no backing file.
func NewEnvironment() Environment {
	return Environment{Vars: document.NewMapping()}
}

// LoadEnvironment reads an [Environment] from the YAML file at path.
//
// A missing file is an empty environment that will be created on [Environment.Save].
// An empty path is an empty environment that cannot be saved.
func LoadEnvironment(path string) (Environment, error) {
	env := NewEnvironment()
	env.Source = path

	if path == "" {
		return env, nil
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return Environment{}, err
	}

	vars, err := document.Decode(contents)
	if err != nil {
		return Environment{}, &FileError{File: path, Msg: err.Error()}
	}

	env.Vars = vars
	return env, nil
}

// Save writes the environment back to the file it was loaded from.
func (e Environment) Save() error {
	if e.Source == "" {
		return errors.New("environment has no file to save to")
	}

	contents, err := document.Encode(document.Map(e.Vars))
	if err != nil {
		return err
	}

	return os.WriteFile(e.Source, contents, 0o644)
}

// Update sets every variable in vars, overwriting any that already exist.
func (e Environment) Update(vars *document.Mapping) {
	for key, value := range vars.All() {
		e.Vars.Set(key, value.Clone())
	}
}

// Remove deletes the variables called keys, missing keys are ignored.
func (e Environment) Remove(keys ...string) {
	for _, key := range keys {
		e.Vars.Delete(key)
	}
}

// Data returns the environment as template data, scalars become strings, sequences
// slices and mappings maps.
func (e Environment) Data() map[string]any {
	data := make(map[string]any, e.Vars.Len())
	for key, value := range e.Vars.All() {
		data[key] = templateValue(value)
	}
	return data
}

// String implements [fmt.Stringer] for an [Environment], it is the YAML form.
func (e Environment) String() string {
	if e.Vars.Len() == 0 {
		return ""
	}

	contents, err := document.Encode(document.Map(e.Vars))
	if err != nil {
		return fmt.Sprintf("<invalid environment: %v>", err)
	}
	return string(contents)
}

// ParseEnvArgs parses environment arguments from the command line.
//
// "KEY:VALUE" sets KEY to VALUE, parsed as YAML so "ids:[1, 2]" sets a list.
// "!KEY" deletes KEY. A later argument for the same key wins over an earlier one.
func ParseEnvArgs(args ...string) (set *document.Mapping, del []string, err error) {
	set = document.NewMapping()

	for _, arg := range args {
		if name, ok := strings.CutPrefix(arg, "!"); ok && name != "" {
			set.Delete(name)
			del = append(del, name)
			continue
		}

		key, raw, ok := strings.Cut(arg, ":")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("%w: %q", ErrBadEnvArg, arg)
		}

		value, err := document.DecodeValue([]byte(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q: %w", ErrBadEnvArg, arg, err)
		}

		set.Set(key, value)
		del = slices.DeleteFunc(del, func(name string) bool { return name == key })
	}

	return set, del, nil
}

// templateValue converts a document value to plain Go data for text/template.
func templateValue(value document.Value) any {
	switch value.Kind() {
	case document.KindSequence:
		items := make([]any, 0, len(value.Items()))
		for _, item := range value.Items() {
			items = append(items, templateValue(item))
		}
		return items
	case document.KindMapping:
		m := make(map[string]any, value.Mapping().Len())
		for key, item := range value.Mapping().All() {
			m[key] = templateValue(item)
		}
		return m
	default:
		return value.Text()
	}
}
