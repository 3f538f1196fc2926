// Package frontend selects the parser that reads a source file into
// statement trees.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sut-sqrlab/more-coverage/internal/frontend/golang"
	"github.com/sut-sqrlab/more-coverage/internal/frontend/python"
	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// ErrUnsupported is returned for files in a language without a frontend.
var ErrUnsupported = errors.New("unsupported source language")

// Frontend reads the functions of a source file.
type Frontend interface {
	Language() string
	Parse(ctx context.Context, filename string, src []byte) (*syntax.File, error)
}

type goFrontend struct{}

func (goFrontend) Language() string { return golang.Language }

func (goFrontend) Parse(_ context.Context, filename string, src []byte) (*syntax.File, error) {
	return golang.Parse(filename, src)
}

type pythonFrontend struct{}

func (pythonFrontend) Language() string { return python.Language }

func (pythonFrontend) Parse(ctx context.Context, filename string, src []byte) (*syntax.File, error) {
	return python.Parse(ctx, filename, src)
}

var byExt = map[string]Frontend{
	".go":  goFrontend{},
	".py":  pythonFrontend{},
	".pyi": pythonFrontend{},
}

// ForFile returns the frontend for the file, based on its extension.
func ForFile(filename string) (Frontend, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if fe, ok := byExt[ext]; ok {
		return fe, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
}

// ForLanguage returns the frontend for a language name, such as "go"
// or "python".
func ForLanguage(lang string) (Frontend, error) {
	for _, fe := range byExt {
		if fe.Language() == strings.ToLower(lang) {
			return fe, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, lang)
}

// Parse reads src with the frontend that fits filename.
func Parse(ctx context.Context, filename string, src []byte) (*syntax.File, error) {
	fe, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	file, err := fe.Parse(ctx, filename, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return file, nil
}
