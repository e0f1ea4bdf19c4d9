// Package seed loads YAML fixture files of sources and responses and
// applies them through the publisher, so seeded data gets the same tasks
// as live data.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/syndicate/internal/model"
	"github.com/roach88/syndicate/internal/syndication"
)

//go:embed schema.cue
var schemaCUE string

// Source is one seeded source. An empty Key lets the publisher generate one.
type Source struct {
	Key       string `yaml:"key,omitempty"`
	Kind      string `yaml:"kind"`
	ShortName string `yaml:"short_name"`
	Name      string `yaml:"name"`
}

// Response is one seeded response.
type Response struct {
	Key      string `yaml:"key"`
	Source   string `yaml:"source"`
	Activity string `yaml:"activity,omitempty"`
	Payload  string `yaml:"payload"`
}

// File is the decoded content of a seed file.
type File struct {
	Sources   []Source   `yaml:"sources"`
	Responses []Response `yaml:"responses"`
}

// ValidationError reports a seed file that does not match the schema.
type ValidationError struct {
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads, validates and decodes the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the seed schema and decodes it.
// filename is only used in error positions.
func Parse(filename string, data []byte) (*File, error) {
	if err := validate(filename, data); err != nil {
		return nil, err
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

func validate(filename string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &ValidationError{Message: "seed file is empty"}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling seed schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return toValidationError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Seed")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

// toValidationError keeps the first CUE error and its source position.
func toValidationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	out := &ValidationError{Message: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		// Prefer a position in the seed file over one in the schema.
		if pos.IsValid() && pos.Filename() != "schema.cue" {
			out.Pos = pos
			break
		}
	}
	return out
}

// Result counts what Apply did.
type Result struct {
	Sources   int
	Responses int
}

// Apply runs CreateNew for every source, then GetOrSave for every response.
// Messages from CreateNew go to sink, which may be nil.
func Apply(ctx context.Context, pub *syndication.Publisher, f *File, sink syndication.MessageSink) (Result, error) {
	var res Result
	for _, s := range f.Sources {
		_, err := pub.CreateNew(ctx, syndication.CreateRequest{
			Kind:      s.Kind,
			ShortName: s.ShortName,
			Name:      s.Name,
			Key:       s.Key,
		}, sink)
		if err != nil {
			return res, fmt.Errorf("seed source %q: %w", s.Name, err)
		}
		res.Sources++
	}

	for _, r := range f.Responses {
		_, err := pub.GetOrSave(ctx, model.Response{
			Key:          r.Key,
			SourceKey:    r.Source,
			ActivityJSON: r.Activity,
			ResponseJSON: r.Payload,
		})
		if err != nil {
			return res, fmt.Errorf("seed response %q: %w", r.Key, err)
		}
		res.Responses++
	}
	return res, nil
}
