// Package collection loads request collections and environments from YAML files.
//
// A collection file holds one or two YAML documents. With two, the first is
// configuration and the second the groups of requests, with one it is just the groups:
//
//	---
//	defaults:
//	  headers:
//	    Accept: application/json
//	---
//	books:
//	  list:
//	    method: get
//	    url: '{{ .server }}/books'
//
// Requests are kept as [document.Mapping] values so they can be modified from the
// command line before being resolved against an [Environment] and sent.
package collection

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.followtheprocess.codes/restcli/internal/document"
	"gopkg.in/yaml.v3"
)

var (
	// ErrGroupNotFound is returned when a group is not in the collection.
	ErrGroupNotFound = errors.New("group not found")

	// ErrRequestNotFound is returned when a request is not in its group.
	ErrRequestNotFound = errors.New("request not found")

	// ErrAttributeNotFound is returned when a request has no such parameter.
	ErrAttributeNotFound = errors.New("attribute not found")
)

// Request parameters.
const (
	ParamMethod  = "method"
	ParamURL     = "url"
	ParamHeaders = "headers"
	ParamQuery   = "query"
	ParamBody    = "body"
	ParamScript  = "script"
)

// Config keys.
const (
	configDefaults = "defaults"
	configLib      = "lib"
)

// param describes a known request parameter and the shapes it may take.
type param struct {
	name     string
	kinds    []document.Kind
	required bool
}

// params are the known request parameters, in the order they are checked.
var params = []param{
	{name: ParamMethod, kinds: []document.Kind{document.KindScalar}, required: true},
	{name: ParamURL, kinds: []document.Kind{document.KindScalar}, required: true},
	{name: ParamQuery, kinds: []document.Kind{document.KindMapping}},
	{name: ParamHeaders, kinds: []document.Kind{document.KindMapping}},
	{name: ParamBody, kinds: []document.Kind{document.KindScalar, document.KindMapping}},
	{name: ParamScript, kinds: []document.Kind{document.KindScalar}},
}

// FileError is invalid content in a collection or environment file.
type FileError struct {
	File string   // The file at fault, may be empty for in-memory sources
	Msg  string   // What is wrong
	Path []string // Keys leading to the problem, e.g. group and request name
}

// Error implements the error interface for [FileError].
func (e *FileError) Error() string {
	location := e.File
	if location == "" {
		location = "<input>"
	}
	if len(e.Path) != 0 {
		location = fmt.Sprintf("%s [%s]", location, strings.Join(e.Path, " > "))
	}
	return fmt.Sprintf("%s: %s", location, e.Msg)
}

// Collection is a set of named groups of requests.
type Collection struct {
	// Source is the file the collection was read from, if any
	Source string

	// Defaults are request parameters given to every request that lacks them
	Defaults *document.Mapping

	// Libs are the lib entries from the config, kept for round tripping only
	Libs []string

	// Groups in the order they appear in the file
	Groups []Group
}

// Group is a named set of requests.
type Group struct {
	Name     string
	Requests []Request
}

// Load reads a [Collection] from the YAML file at path.
func Load(path string) (Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return Collection{}, err
	}
	defer f.Close()

	return Decode(path, f)
}

// Decode reads a [Collection] from r, name is used in error messages.
func Decode(name string, r io.Reader) (Collection, error) {
	decoder := yaml.NewDecoder(r)

	var docs []*document.Mapping
	for {
		var node yaml.Node
		err := decoder.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Collection{}, fmt.Errorf("%s: invalid YAML: %w", name, err)
		}

		doc := document.NewMapping()
		if err := doc.UnmarshalYAML(&node); err != nil {
			return Collection{}, &FileError{File: name, Msg: err.Error()}
		}
		docs = append(docs, doc)
	}

	var config, groups *document.Mapping
	switch len(docs) {
	case 1:
		config, groups = document.NewMapping(), docs[0]
	case 2:
		config, groups = docs[0], docs[1]
	case 0:
		return Collection{}, &FileError{File: name, Msg: "collection document not found"}
	default:
		return Collection{}, &FileError{File: name, Msg: "too many documents; expected 1 or 2"}
	}

	c := Collection{Source: name}
	if err := c.loadConfig(config); err != nil {
		return Collection{}, err
	}

	if err := c.loadGroups(groups); err != nil {
		return Collection{}, err
	}

	return c, nil
}

// Group returns the group called name.
func (c Collection) Group(name string) (Group, error) {
	for _, group := range c.Groups {
		if group.Name == name {
			return group, nil
		}
	}
	return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
}

// Request returns the request called name in group.
func (c Collection) Request(group, name string) (Request, error) {
	g, err := c.Group(group)
	if err != nil {
		return Request{}, err
	}

	for _, request := range g.Requests {
		if request.Name == name {
			return request, nil
		}
	}

	return Request{}, fmt.Errorf("%w: %s > %s", ErrRequestNotFound, group, name)
}

// Requests returns every request in the collection, in file order.
func (c Collection) Requests() []Request {
	var requests []Request
	for _, group := range c.Groups {
		requests = append(requests, group.Requests...)
	}
	return requests
}

// Document returns the whole collection as a document, groups to requests to
// parameters, with defaults already applied.
func (c Collection) Document() *document.Mapping {
	doc := document.NewMapping()
	for _, group := range c.Groups {
		doc.Set(group.Name, document.Map(group.Document()))
	}
	return doc
}

// Document returns the group as a document of request names to parameters.
func (g Group) Document() *document.Mapping {
	doc := document.NewMapping()
	for _, request := range g.Requests {
		doc.Set(request.Name, document.Map(request.Params.Clone()))
	}
	return doc
}

// loadConfig validates and stores the config document.
func (c *Collection) loadConfig(config *document.Mapping) error {
	for key, value := range config.All() {
		switch key {
		case configDefaults:
			if value.Kind() != document.KindMapping {
				return c.error("defaults must be a mapping", configDefaults)
			}
			for key := range value.Mapping().All() {
				if !isParam(key) {
					return c.error(fmt.Sprintf("unexpected key in defaults %q", key), configDefaults)
				}
			}
			c.Defaults = value.Mapping()
		case configLib:
			// Scripting libs are not supported, but keep their names so nothing is lost
			if value.Kind() != document.KindSequence {
				return c.error(`"lib" must be an array`, configLib)
			}
			for _, item := range value.Items() {
				c.Libs = append(c.Libs, item.Text())
			}
		default:
			return c.error(fmt.Sprintf("unexpected key in config: %q", key))
		}
	}

	return nil
}

// loadGroups validates the groups document and populates c.Groups.
func (c *Collection) loadGroups(groups *document.Mapping) error {
	for groupName, value := range groups.All() {
		if value.Kind() != document.KindMapping {
			return c.error("group must be a mapping object", groupName)
		}

		group := Group{Name: groupName}
		for requestName, raw := range value.Mapping().All() {
			path := []string{groupName, requestName}
			if raw.Kind() != document.KindMapping {
				return c.error("request must be a mapping object", path...)
			}

			request, err := c.newRequest(groupName, requestName, raw.Mapping())
			if err != nil {
				return err
			}
			group.Requests = append(group.Requests, request)
		}

		c.Groups = append(c.Groups, group)
	}

	return nil
}

// newRequest validates a raw request mapping, filling in defaults.
func (c *Collection) newRequest(group, name string, raw *document.Mapping) (Request, error) {
	path := []string{group, name}

	for key := range raw.All() {
		if !isParam(key) {
			return Request{}, c.error(fmt.Sprintf("%q is not a valid parameter", key), path...)
		}
	}

	doc := raw.Clone()
	for _, p := range params {
		value, ok := doc.Get(p.name)
		if !ok {
			if def, ok := c.Defaults.Get(p.name); ok {
				doc.Set(p.name, def.Clone())
				value = def
			} else if p.required {
				return Request{}, c.error(fmt.Sprintf("required parameter %q not found", p.name), path...)
			} else {
				continue
			}
		}

		if !kindAllowed(value.Kind(), p.kinds) {
			return Request{}, c.error(
				fmt.Sprintf("request %q must be a %s", p.name, describeKinds(p.kinds)),
				append(path, p.name)...,
			)
		}
	}

	return Request{Group: group, Name: name, Params: doc}, nil
}

// error returns a [FileError] for the collection.
func (c *Collection) error(msg string, path ...string) error {
	return &FileError{File: c.Source, Msg: msg, Path: path}
}

// isParam reports whether name is a known request parameter.
func isParam(name string) bool {
	for _, p := range params {
		if p.name == name {
			return true
		}
	}
	return false
}

// kindAllowed reports whether kind is one of allowed.
func kindAllowed(kind document.Kind, allowed []document.Kind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// describeKinds names a set of kinds for error messages.
func describeKinds(kinds []document.Kind) string {
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, strings.ToLower(kind.String()))
	}
	return strings.Join(names, " or ")
}
