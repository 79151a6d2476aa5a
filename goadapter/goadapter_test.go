package goadapter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexanalysis-core/goadapter"
)

const testGoMod = "module example.com/sample\n\ngo 1.22\n"

const testGoSource = `package sample

type Base struct{}

func (b *Base) Greet() string { return "hi" }

type Greeter interface {
	Greet() string
}

type Derived struct {
	Base
}

func (d *Derived) Greet() string { return "hello" }

func Run(g Greeter) string {
	return g.Greet()
}
`

func writeSampleModule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(testGoMod), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(testGoSource), 0o644))
	return dir
}

func TestDetectModulePathReadsModuleDirective(t *testing.T) {
	dir := writeSampleModule(t)
	path, err := goadapter.DetectModulePath(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/sample", path)
}

func TestDetectModulePathErrorsWithoutGoMod(t *testing.T) {
	dir := t.TempDir()
	_, err := goadapter.DetectModulePath(dir)
	assert.Error(t, err)
}

func TestLoadScopeDerivesClassesFromStructsAndEmbedding(t *testing.T) {
	dir := writeSampleModule(t)
	scope, err := goadapter.LoadScope(dir)
	require.NoError(t, err)

	derived, ok := scope.ClassNamed("example.com/sample.Derived")
	require.True(t, ok)
	assert.Equal(t, "example.com/sample.Base", string(derived.Super))

	base, ok := scope.ClassNamed("example.com/sample.Base")
	require.True(t, ok)
	require.Len(t, base.VirtualMethods, 1)
	assert.True(t, base.VirtualMethods[0].Virtual, "Greet is reachable via the Greeter interface")
}
