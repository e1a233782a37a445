package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvesta/vulncollect/pkg/component"
)

const testBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.4",
  "version": 1,
  "components": [
    {
      "type": "library",
      "bom-ref": "openssl@1.0.2",
      "name": "openssl",
      "version": "1.0.2",
      "externalReferences": [
        {"type": "vcs", "url": "https://github.com/openssl/openssl"},
        {"type": "website", "url": "https://www.openssl.org"}
      ],
      "properties": [
        {"name": "vulncollect:componentId", "value": "openssl"},
        {"name": "vulncollect:releaseId", "value": "rel-openssl-102"},
        {"name": "vulncollect:componentType", "value": "STANDARD"}
      ]
    },
    {
      "type": "library",
      "bom-ref": "zlib",
      "name": "zlib",
      "properties": [
        {"name": "vulncollect:componentType", "value": "standard_modified"}
      ]
    },
    {
      "type": "library",
      "name": "anonymous"
    },
    {
      "type": "library",
      "bom-ref": "nameless"
    },
    {
      "type": "application",
      "bom-ref": "inhouse",
      "name": "inhouse",
      "version": "2.3",
      "properties": [
        {"name": "vulncollect:componentType", "value": "custom"}
      ]
    }
  ]
}`

func TestCycloneDXBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.cdx.json"), []byte(testBOM), 0644))

	comps, err := NewCollector(NewCycloneDXBackend(dir)).ListComponents(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, comps, 3)

	openssl := comps[0]
	assert.Equal(t, "openssl", openssl.Name)
	require.NotNil(t, openssl.Version)
	assert.Equal(t, "1.0.2", *openssl.Version)
	assert.Equal(t, "https://www.openssl.org", openssl.HomePage)
	assert.Equal(t, component.Standard, openssl.Type)
	assert.Equal(t, component.Key{ComponentID: "openssl", ReleaseID: "rel-openssl-102"}, openssl.Key)

	zlib := comps[1]
	assert.Nil(t, zlib.Version)
	assert.Equal(t, component.StandardModified, zlib.Type)
	assert.Equal(t, component.Key{ComponentID: "zlib"}, zlib.Key)

	assert.Equal(t, component.Custom, comps[2].Type)
}

func TestCycloneDXBackendMissingProject(t *testing.T) {
	backend := NewCycloneDXBackend(t.TempDir())

	_, err := NewCollector(backend).ListComponents(context.Background(), "absent")
	assert.True(t, errors.Is(err, ErrInventoryFailure))

	_, err = backend.BOMEntries(context.Background(), "../etc")
	assert.True(t, errors.Is(err, ErrInventoryFailure))
}

func TestCycloneDXBackendFallbackName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.json"), []byte(testBOM), 0644))

	entries, err := NewCycloneDXBackend(dir).BOMEntries(context.Background(), "plain")
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Nil(t, entries[2])
}

const sharedKeyBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.4",
  "version": 1,
  "components": [
    {
      "type": "library",
      "bom-ref": "openssl@1.0.2",
      "name": "openssl",
      "version": "1.0.2",
      "properties": [
        {"name": "vulncollect:componentId", "value": "openssl"},
        {"name": "vulncollect:componentType", "value": "standard"}
      ]
    },
    {
      "type": "library",
      "bom-ref": "openssl@3.0.1",
      "name": "openssl",
      "version": "3.0.1",
      "properties": [
        {"name": "vulncollect:componentId", "value": "openssl"},
        {"name": "vulncollect:componentType", "value": "standard"}
      ]
    },
    {
      "type": "framework",
      "bom-ref": "spring",
      "name": "spring",
      "version": "5.0",
      "properties": [
        {"name": "vulncollect:componentId", "value": "parent"}
      ],
      "components": [
        {
          "type": "library",
          "bom-ref": "spring-core",
          "name": "spring-core",
          "version": "5.0.1",
          "properties": [
            {"name": "vulncollect:componentId", "value": "spring-core"},
            {"name": "vulncollect:componentType", "value": "standard"}
          ],
          "components": [
            {"type": "library", "bom-ref": "spring-jcl", "name": "spring-jcl", "version": "5.0.1"}
          ]
        }
      ]
    },
    {
      "type": "library",
      "bom-ref": "zlib",
      "name": "zlib",
      "version": "1.2.11"
    }
  ]
}`

func TestCycloneDXBackendEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.cdx.json"), []byte(sharedKeyBOM), 0644))

	comps, err := NewCollector(NewCycloneDXBackend(dir)).ListComponents(context.Background(), "shared")
	require.NoError(t, err)

	type entry struct {
		name    string
		version string
		key     component.Key
	}

	got := []entry{}
	for _, c := range comps {
		got = append(got, entry{name: c.Name, version: c.VersionString(), key: c.Key})
	}

	want := []entry{
		{name: "openssl", version: "1.0.2", key: component.Key{ComponentID: "openssl"}},
		{name: "openssl", version: "3.0.1", key: component.Key{ComponentID: "openssl"}},
		{name: "spring", version: "5.0", key: component.Key{ComponentID: "parent"}},
		{name: "spring-core", version: "5.0.1", key: component.Key{ComponentID: "spring-core"}},
		{name: "spring-jcl", version: "5.0.1", key: component.Key{ComponentID: "spring-jcl"}},
		{name: "zlib", version: "1.2.11", key: component.Key{ComponentID: "zlib"}},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListComponents() = %v, want %v", got, want)
	}
}
