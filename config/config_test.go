package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	StoreName string `yaml:"store_name" validate:"nonzero"`
	Port      int    `yaml:"port"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseMergesFilesInOrder(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	base := writeFile(t, dir, "base.yaml", "store_name: app\nport: 9042\n")
	override := writeFile(t, dir, "override.yaml", "port: 9043\n")

	var c testConfig
	require.NoError(t, Parse(&c, base, override))
	assert.Equal(t, "app", c.StoreName)
	assert.Equal(t, 9043, c.Port)
}

func TestParseNoFiles(t *testing.T) {
	var c testConfig
	assert.Error(t, Parse(&c))
}

func TestParseMissingFile(t *testing.T) {
	var c testConfig
	assert.Error(t, Parse(&c, "does-not-exist.yaml"))
}

func TestParseValidation(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := writeFile(t, dir, "bad.yaml", "port: 9042\n")

	var c testConfig
	err = Parse(&c, path)
	require.Error(t, err)

	verr, ok := err.(ValidationError)
	require.True(t, ok)
	assert.Error(t, verr.ErrForField("StoreName"))
}
