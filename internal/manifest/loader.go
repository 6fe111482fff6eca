package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gezibash/hookmeta/internal/resolver"
	"github.com/gezibash/hookmeta/internal/snapshot"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates one manifest. name is used in errors only.
func Parse(name string, data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if raw == nil {
		return &Document{}, nil
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &doc, nil
}

// Discover returns the files under root matching pattern, as sorted paths
// joined onto root.
func Discover(root, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid manifest pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover manifests in %s: %w", root, err)
	}
	sort.Strings(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return paths, nil
}

// Set is the combined content of every discovered manifest.
type Set struct {
	Files       []string
	Descriptors []webhook.Descriptor
	Endpoints   []resolver.Endpoint
}

// Load discovers, parses and converts every manifest under root. Files are
// read in path order and entries keep their declaration order.
func Load(root, pattern string) (*Set, error) {
	files, err := Discover(root, pattern)
	if err != nil {
		return nil, err
	}

	set := &Set{Files: files}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		doc, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		descs, err := doc.Descriptors()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		eps, err := doc.ResolverEndpoints()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		set.Descriptors = append(set.Descriptors, descs...)
		set.Endpoints = append(set.Endpoints, eps...)
	}
	return set, nil
}

// Source loads manifests for snapshot builds.
type Source struct {
	Root    string
	Pattern string
}

// Load implements snapshot.Source.
func (s Source) Load(ctx context.Context) (snapshot.Input, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Input{}, err
	}
	set, err := Load(s.Root, s.Pattern)
	if err != nil {
		return snapshot.Input{}, err
	}
	return snapshot.Input{
		Descriptors: set.Descriptors,
		Endpoints:   set.Endpoints,
		Origins:     set.Files,
	}, nil
}

// Match reports whether path, absolute or relative to the working directory,
// is a manifest under the source root.
func (s Source) Match(path string) bool {
	rel, err := filepath.Rel(s.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	ok, err := doublestar.Match(s.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
