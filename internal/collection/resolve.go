package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"go.followtheprocess.codes/restcli/internal/document"
)

const (
	DefaultConnectionTimeout = 10 * time.Second // Default connection timeout for HTTP requests
	DefaultTimeout           = 30 * time.Second // Default overall timeout for HTTP requests
)

// Resolved is a request with every template filled in, ready to be sent.
type Resolved struct {
	// Headers to send, a header given as a list is sent once per item
	Header http.Header

	// The HTTP method, upper cased
	Method string

	// The complete URL including any query parameters
	URL string

	// The JSON encoded body, nil if the request has none
	Body []byte
}

// Resolve fills in the templates in params using env and returns the request
// described by them.
//
// String values are rendered with text/template, so "{{ .server }}" is replaced by
// the environment variable "server" and a missing variable is an error. A string
// body is rendered and then parsed as YAML, a mapping body has each of its leaves
// rendered in place, either way the result is sent as JSON.
func Resolve(name string, params *document.Mapping, env Environment) (Resolved, error) {
	r := resolver{name: name, data: env.Data()}

	method, ok := params.Get(ParamMethod)
	if !ok {
		return Resolved{}, fmt.Errorf("request %s has no %s", name, ParamMethod)
	}

	rawURL, ok := params.Get(ParamURL)
	if !ok {
		return Resolved{}, fmt.Errorf("request %s has no %s", name, ParamURL)
	}

	resolved := Resolved{
		Method: strings.ToUpper(method.Text()),
		Header: make(http.Header),
	}

	if resolved.Method == "" {
		return Resolved{}, fmt.Errorf("request %s has an empty method", name)
	}

	resolvedURL, err := r.render("URL", rawURL.Text())
	if err != nil {
		return Resolved{}, err
	}

	// Now URL templates have been resolved, it must be a valid URL
	parsed, err := url.ParseRequestURI(resolvedURL)
	if err != nil {
		return Resolved{}, fmt.Errorf("invalid URL for request %s: %w", name, err)
	}

	if query, ok := params.Get(ParamQuery); ok {
		values := parsed.Query()
		err := r.each(ParamQuery, query, func(key, value string) { values.Add(key, value) })
		if err != nil {
			return Resolved{}, err
		}
		parsed.RawQuery = values.Encode()
	}

	resolved.URL = parsed.String()

	if headers, ok := params.Get(ParamHeaders); ok {
		err := r.each(ParamHeaders, headers, func(key, value string) { resolved.Header.Add(key, value) })
		if err != nil {
			return Resolved{}, err
		}
	}

	if body, ok := params.Get(ParamBody); ok {
		resolved.Body, err = r.body(body)
		if err != nil {
			return Resolved{}, err
		}
	}

	if resolved.Body != nil && resolved.Header.Get("Content-Type") == "" {
		resolved.Header.Set("Content-Type", "application/json")
	}

	return resolved, nil
}

// resolver renders the templates of a single request.
type resolver struct {
	data map[string]any // Template data from the environment
	buf  bytes.Buffer   // Reused between renders
	name string         // Name of the request, for errors and template names
}

// render executes text as a template.
func (r *resolver) render(part, text string) (string, error) {
	tmp, err := template.New(fmt.Sprintf("Request %s/%s", r.name, part)).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid template syntax in request %s %s: %w", r.name, part, err)
	}

	r.buf.Reset()
	if err = tmp.Execute(&r.buf, r.data); err != nil {
		return "", fmt.Errorf("failed to execute templating for request %s %s: %w", r.name, part, err)
	}

	return r.buf.String(), nil
}

// each renders every value of a mapping parameter like headers or query and calls fn
// for it, a list value calls fn once per item.
func (r *resolver) each(param string, value document.Value, fn func(key, value string)) error {
	if value.Kind() != document.KindMapping {
		return fmt.Errorf("request %s %s must be a mapping, got %s", r.name, param, value.Kind())
	}

	for key, item := range value.Mapping().All() {
		var texts []string
		switch item.Kind() {
		case document.KindScalar:
			texts = []string{item.Text()}
		case document.KindSequence:
			for _, elem := range item.Items() {
				if elem.Kind() != document.KindScalar {
					return fmt.Errorf("request %s %s %q must only contain strings", r.name, param, key)
				}
				texts = append(texts, elem.Text())
			}
		default:
			return fmt.Errorf("request %s %s %q must be a string or list, got %s", r.name, param, key, item.Kind())
		}

		for _, text := range texts {
			rendered, err := r.render(param+"/"+key, text)
			if err != nil {
				return err
			}
			fn(key, rendered)
		}
	}

	return nil
}

// body renders and encodes the request body.
func (r *resolver) body(value document.Value) ([]byte, error) {
	var rendered document.Value
	switch value.Kind() {
	case document.KindScalar:
		text, err := r.render(ParamBody, value.Text())
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(text) == "" {
			return nil, nil
		}

		decoded, err := document.DecodeValue([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("request %s body is not valid YAML after templating: %w", r.name, err)
		}
		rendered = decoded
	default:
		var err error
		rendered, err = r.leaves(value)
		if err != nil {
			return nil, err
		}
	}

	return json.Marshal(rendered)
}

// leaves returns a copy of value with every scalar rendered, tags are kept so a
// number stays a number.
func (r *resolver) leaves(value document.Value) (document.Value, error) {
	switch value.Kind() {
	case document.KindSequence:
		items := make([]document.Value, 0, len(value.Items()))
		for _, item := range value.Items() {
			rendered, err := r.leaves(item)
			if err != nil {
				return document.Value{}, err
			}
			items = append(items, rendered)
		}
		return document.List(items...), nil
	case document.KindMapping:
		m := document.NewMapping()
		for key, item := range value.Mapping().All() {
			rendered, err := r.leaves(item)
			if err != nil {
				return document.Value{}, err
			}
			m.Set(key, rendered)
		}
		return document.Map(m), nil
	default:
		text, err := r.render(ParamBody, value.Text())
		if err != nil {
			return document.Value{}, err
		}
		return document.Tagged(text, value.Tag()), nil
	}
}
