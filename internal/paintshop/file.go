package paintshop

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// ReadProblem decodes the first YAML document of r. The document holds a
// `sequence` list and a `counts` mapping.
func ReadProblem(r io.Reader) (Problem, error) {
	var p Problem
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Problem{}, fmt.Errorf("read problem: empty document")
		}
		return Problem{}, fmt.Errorf("read problem: %w", err)
	}
	if len(p.Sequence) == 0 {
		return Problem{}, fmt.Errorf("read problem: %w", ErrEmptySequence)
	}
	if p.Counts == nil {
		p.Counts = Demand{}
	}
	return p, nil
}

// WriteProblem encodes p as a single YAML document.
func WriteProblem(w io.Writer, p Problem) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if p.Counts == nil {
		p.Counts = Demand{}
	}
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("write problem: %w", err)
	}
	return enc.Close()
}

// LoadProblem reads a problem file.
func LoadProblem(path string) (Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return Problem{}, err
	}
	defer func() { _ = f.Close() }()
	p, err := ReadProblem(f)
	if err != nil {
		return Problem{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SaveProblem writes a problem file, creating parent directories.
func SaveProblem(path string, p Problem) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteProblem(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
