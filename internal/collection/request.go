package collection

import (
	"fmt"
	"strings"

	"go.followtheprocess.codes/restcli/internal/document"
)

// A Request is a single named HTTP request in a [Group].
type Request struct {
	// Params are the request parameters: method, url, headers, query, body and script.
	//
	// Values may contain "{{ .name }}" templates which are only filled in by [Resolve].
	Params *document.Mapping

	// Name of the group the request belongs to
	Group string

	// Name of the request within its group
	Name string
}

// Attr returns the value of the request parameter called name.
func (r Request) Attr(name string) (document.Value, error) {
	value, ok := r.Params.Get(name)
	if !ok {
		return document.Value{}, fmt.Errorf("%w: %s > %s > %s", ErrAttributeNotFound, r.Group, r.Name, name)
	}
	return value.Clone(), nil
}

// Method returns the upper cased HTTP method of the request.
func (r Request) Method() string {
	method, _ := r.Params.Get(ParamMethod)
	return strings.ToUpper(method.Text())
}

// URL returns the unresolved URL of the request.
func (r Request) URL() string {
	url, _ := r.Params.Get(ParamURL)
	return url.Text()
}

// Title returns the title of the request, used in the interactive picker.
func (r Request) Title() string {
	return r.Group + " " + r.Name
}

// Description returns the description of the request, used in the interactive picker.
func (r Request) Description() string {
	return r.Method() + " " + r.URL()
}

// FilterValue returns the string the interactive picker filters requests on.
func (r Request) FilterValue() string {
	return r.Group + " " + r.Name + " " + r.URL()
}
