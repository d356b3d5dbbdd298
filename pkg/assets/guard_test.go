package assets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestResolveFindsAssetInSearchDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cube.usd", []byte("usd"))

	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	resolved, err := g.Resolve("cube.usd")
	require.NoError(t, err)
	assert.Contains(t, resolved, "cube.usd")
}

func TestResolveProbesDirsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, second, "only_in_second.usd", []byte("x"))

	g, err := New(Options{SearchDirs: []string{first, second}})
	require.NoError(t, err)

	resolved, err := g.Resolve("only_in_second.usd")
	require.NoError(t, err)
	assert.Contains(t, resolved, second)
}

func TestResolveRejectsParentTraversal(t *testing.T) {
	dir := t.TempDir()
	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve("../etc/passwd")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodePathTraversal, ae.Type)
}

func TestResolveRejectsNulByte(t *testing.T) {
	dir := t.TempDir()
	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve("cube\x00.usd")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodePathTraversal, ae.Type)
}

func TestResolveDeniesAbsolutePathByDefault(t *testing.T) {
	dir := t.TempDir()
	abs := writeFile(t, dir, "cube.usd", []byte("usd"))

	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve(abs)
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodePathTraversal, ae.Type)
}

func TestResolveAllowsAbsolutePathWhenPolicyPermits(t *testing.T) {
	dir := t.TempDir()
	abs := writeFile(t, dir, "cube.usd", []byte("usd"))

	g, err := New(Options{SearchDirs: []string{dir}, AllowAbsolute: true})
	require.NoError(t, err)

	resolved, err := g.Resolve(abs)
	require.NoError(t, err)
	assert.Contains(t, resolved, "cube.usd")
}

func TestResolveDeniesWindowsDriveLetterUnlessAbsoluteAllowed(t *testing.T) {
	dir := t.TempDir()
	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve(`C:\Windows\System32\config`)
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodePathTraversal, ae.Type)
}

func TestResolveRejectsSymlinkEscapingSearchDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}
	outside := t.TempDir()
	secret := writeFile(t, outside, "secret.usd", []byte("classified"))

	dir := t.TempDir()
	link := filepath.Join(dir, "escape.usd")
	require.NoError(t, os.Symlink(secret, link))

	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve("escape.usd")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodePathTraversal, ae.Type)
}

func TestResolveEnforcesExtensionAllowList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "script.py", []byte("print(1)"))

	g, err := New(Options{SearchDirs: []string{dir}, ExtensionAllowList: []string{".usd", ".usda"}})
	require.NoError(t, err)

	_, err = g.Resolve("script.py")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeInvalidParameter, ae.Type)
}

func TestResolveEnforcesMaxSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.usd", make([]byte, 1024))

	g, err := New(Options{SearchDirs: []string{dir}, MaxSizeBytes: 100})
	require.NoError(t, err)

	_, err = g.Resolve("big.usd")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeInvalidParameter, ae.Type)
}

func TestResolveRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve("subdir")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeInvalidParameter, ae.Type)
}

func TestResolveMissingAssetReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	g, err := New(Options{SearchDirs: []string{dir}})
	require.NoError(t, err)

	_, err = g.Resolve("nope.usd")
	require.Error(t, err)
	var ae *apierrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.CodeNotFound, ae.Type)
}
