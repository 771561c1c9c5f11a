package main

import (
	"go/parser"
	"go/token"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The root automaxprocs package sets GOMAXPROCS in its init; the maxprocs
// subpackage does not.
func TestMainImportsAutomaxprocsInit(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "main.go", nil, parser.ImportsOnly)
	require.NoError(t, err)

	var paths []string
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		paths = append(paths, path)
	}
	assert.Contains(t, paths, "go.uber.org/automaxprocs")
	assert.NotContains(t, paths, "go.uber.org/automaxprocs/maxprocs")
}
