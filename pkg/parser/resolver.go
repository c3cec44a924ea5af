package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// isURL checks if the given path is a URL
func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Resolver loads an OpenAPI document, inlines every reference and validates
// the result against the supported schema generations
type Resolver struct {
	// ReadFromURI fetches documents and external references. Reads are not
	// cached across Resolve calls.
	ReadFromURI openapi3.ReadFromURIFunc

	loader *openapi3.Loader
}

// NewResolver creates a resolver reading local files and HTTP(S) URLs
func NewResolver() *Resolver {
	return &Resolver{
		ReadFromURI: openapi3.ReadFromURIs(openapi3.ReadFromHTTP(http.DefaultClient), openapi3.ReadFromFile),
		loader:      newLoader(),
	}
}

// NewResolverWithReader creates a resolver fetching through read
func NewResolverWithReader(read openapi3.ReadFromURIFunc) *Resolver {
	return &Resolver{ReadFromURI: read, loader: newLoader()}
}

func newLoader() *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	return loader
}

// Resolve produces a fully inlined and validated document. Failures to read,
// decode or inline return *SpecResolutionError; a document matching no
// supported version returns *SpecIncompatibleError.
func (r *Resolver) Resolve(ctx context.Context, specPath string) (*Document, error) {
	location, err := specLocation(specPath)
	if err != nil {
		return nil, &SpecResolutionError{Path: specPath, Cause: err}
	}

	in := newInliner(r.read)
	doc, err := in.document(location)
	if err != nil {
		return nil, &SpecResolutionError{Path: specPath, Cause: err}
	}
	root := follow(doc)
	if root.Kind != yaml.MappingNode {
		return nil, &SpecResolutionError{Path: specPath, Cause: fmt.Errorf("document root is not a mapping")}
	}
	if err := in.inline(root, location, 0); err != nil {
		return nil, &SpecResolutionError{Path: specPath, Cause: err}
	}

	outcome, spec := Validate(ctx, root)
	if !outcome.Matched() {
		return nil, &SpecIncompatibleError{Path: specPath, Outcome: outcome}
	}

	return &Document{
		Source:  specPath,
		Version: outcome.Version,
		Root:    root,
		Spec:    spec,
	}, nil
}

func (r *Resolver) read(location *url.URL) ([]byte, error) {
	read := r.ReadFromURI
	if read == nil {
		read = openapi3.ReadFromURIs(openapi3.ReadFromHTTP(http.DefaultClient), openapi3.ReadFromFile)
	}
	loader := r.loader
	if loader == nil {
		loader = newLoader()
	}
	return read(loader, location)
}

// specLocation turns a file path or URL into the base location for relative references
func specLocation(specPath string) (*url.URL, error) {
	if isURL(specPath) {
		u, err := url.Parse(specPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse spec URL: %w", err)
		}
		return u, nil
	}

	abs, err := filepath.Abs(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spec path: %w", err)
	}
	return &url.URL{Path: filepath.ToSlash(abs)}, nil
}
