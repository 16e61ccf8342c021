package addmodule

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/albertocavalcante/bcr-tools/registry"
)

var (
	// ErrReadInput means the input file could not be opened or read.
	ErrReadInput = errors.New("read input")

	// ErrParseInput means the input file is not a valid module description.
	ErrParseInput = errors.New("parse input")
)

//go:embed schemas/input.schema.json
var inputSchemaJSON []byte

const inputSchemaURL = "input.schema.json"

var inputSchema = mustCompile()

func mustCompile() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(inputSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("addmodule: decoding %s: %v", inputSchemaURL, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(inputSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("addmodule: loading %s: %v", inputSchemaURL, err))
	}
	s, err := c.Compile(inputSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("addmodule: compiling %s: %v", inputSchemaURL, err))
	}
	return s
}

// Input is the JSON document describing the module version to add.
//
//	{
//	    "module": {"name": "foo", "version": "1.0", "url": "https://..."},
//	    "homepage": "https://foo.dev",
//	    "maintainers": [{"name": "A", "github": "a"}]
//	}
type Input struct {
	Module      registry.Module       `json:"module"`
	Homepage    string                `json:"homepage"`
	Maintainers []registry.Maintainer `json:"maintainers"`
}

// LoadInput reads and decodes the input file at path.
func LoadInput(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadInput, path, err)
	}
	in, err := ParseInput(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// ParseInput checks data against the input schema and decodes it. Unknown
// fields are rejected at every level.
func ParseInput(data []byte) (*Input, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseInput, err)
	}
	if err := inputSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseInput, err)
	}

	var in Input
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseInput, err)
	}
	if err := in.Module.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseInput, err)
	}
	return &in, nil
}
