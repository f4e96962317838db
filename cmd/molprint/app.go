package main

import (
	"errors"
	"fmt"

	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/session"
)

// App runs scripts against one session and hands back placed meshes.
type App struct {
	session *session.Session
}

// MeshData is the JSON-serializable mesh format written by run --meshes.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is everything one evaluation produced.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp wraps s.
func NewApp(s *session.Session) *App {
	return &App{session: s}
}

// Session returns the wrapped session.
func (a *App) Session() *session.Session { return a.session }

// Evaluate runs source and returns a mesh per assembled body. Script
// errors come back with positions; a failing command stops the run but
// what it already built is still returned.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	err := a.session.RunScript(source)
	var se *session.ScriptError
	switch {
	case errors.As(err, &se):
		for _, e := range se.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	case err != nil:
		a.session.Logger().Error("script failed", logging.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}

	if n := len(a.session.Loose); n > 0 {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Message: fmt.Sprintf("%d primitives were not reached by any group and were left out", n),
		})
	}

	for _, b := range a.session.Bodies {
		m, err := a.session.World(b)
		if err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Message: "meshing failed: " + err.Error()})
			return result
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: b.Name,
			Color:    b.Color.Hex(),
		})
	}
	return result
}
