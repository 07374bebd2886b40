package smf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const servicesYAML = `
services:
  - name: webapp
    command: /opt/webapp/bin/webapp --port 8080
    user: webapp
    directory: /opt/webapp
    environment:
      PORT: "8080"
      RACK_ENV: production
  - name: legacy
    action: destroy
`

func TestParseSpecs(t *testing.T) {
	specs, err := ParseSpecs([]byte(servicesYAML))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	web := specs[0]
	assert.Equal(t, "webapp", web.Name)
	assert.Equal(t, "/opt/webapp/bin/webapp --port 8080", web.Command)
	assert.Equal(t, "webapp", web.User)
	assert.Equal(t, "/opt/webapp", web.Directory)
	assert.Equal(t, map[string]string{"PORT": "8080", "RACK_ENV": "production"}, web.Environment)
	assert.Equal(t, ActionCreate, web.Action)
	assert.Equal(t, "svc:/site/webapp", web.FMRI())

	assert.Equal(t, "legacy", specs[1].Name)
	assert.Equal(t, ActionDestroy, specs[1].Action)
}

func TestParseSpecsErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "services: [",
		"missing command": "services:\n  - name: webapp\n",
		"bad name":        "services:\n  - name: 9lives\n    command: /bin/true\n",
		"bad action":      "services:\n  - name: webapp\n    command: /bin/true\n    action: restart\n",
		"bad env key":     "services:\n  - name: webapp\n    command: /bin/true\n    environment:\n      BAD-KEY: x\n",
		"duplicate":       "services:\n  - name: a\n    command: /bin/true\n  - name: a\n    command: /bin/false\n",
		"empty entry":     "services:\n  -\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpecs([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestLoadSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(servicesYAML), 0o600))

	specs, err := LoadSpecs(path)
	require.NoError(t, err)
	assert.Len(t, specs, 2)

	_, err = LoadSpecs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestServiceSpecValidate(t *testing.T) {
	valid := []*ServiceSpec{
		NewServiceSpec("webapp").WithCommand("/bin/true"),
		NewServiceSpec("my-app.v2_x").WithCommand("/bin/true"),
		NewServiceSpec("webapp").WithAction(ActionDestroy),
		webappSpec(),
	}
	for _, spec := range valid {
		assert.NoError(t, spec.Validate(), spec.Name)
	}

	invalid := []*ServiceSpec{
		NewServiceSpec(""),
		NewServiceSpec("a/b").WithCommand("/bin/true"),
		NewServiceSpec("has space").WithCommand("/bin/true"),
		NewServiceSpec("webapp"),
		NewServiceSpec("webapp").WithCommand("/bin/true").WithDirectory("relative"),
		NewServiceSpec("webapp").WithCommand("/bin/true").WithEnv("1BAD", "x"),
		NewServiceSpec("webapp").WithCommand("/bin/true").WithAction(Action(7)),
	}
	for _, spec := range invalid {
		err := spec.Validate()
		assert.ErrorIs(t, err, ErrInvalidSpec, "%+v", spec)

		var specErr *InvalidSpecError
		assert.ErrorAs(t, err, &specErr)
	}
}

func TestServiceSpecRejectsNonXMLText(t *testing.T) {
	cases := []struct {
		field string
		spec  *ServiceSpec
	}{
		{"command", NewServiceSpec("webapp").WithCommand("/bin/echo \x01x")},
		{"command", NewServiceSpec("webapp").WithCommand("/bin/echo \xff")},
		{"environment.K", NewServiceSpec("webapp").WithCommand("/bin/true").WithEnv("K", "/bin/echo \x01x")},
		{"environment.CRLF", NewServiceSpec("webapp").WithCommand("/bin/true").WithEnv("CRLF", "a\r\nb")},
		{"user", NewServiceSpec("webapp").WithCommand("/bin/true").WithUser("web\x00app")},
		{"directory", NewServiceSpec("webapp").WithCommand("/bin/true").WithDirectory("/opt/\xffapp")},
	}

	for _, tc := range cases {
		err := tc.spec.Validate()
		require.ErrorIs(t, err, ErrInvalidSpec, "%q", tc.spec.Command)

		var specErr *InvalidSpecError
		require.ErrorAs(t, err, &specErr)
		assert.Equal(t, tc.field, specErr.Field)
	}

	var nilSpec *ServiceSpec
	assert.ErrorIs(t, nilSpec.Validate(), ErrInvalidSpec)
}

func TestServiceSpecWhitespaceRoundTrips(t *testing.T) {
	spec := NewServiceSpec("webapp").
		WithCommand("/bin/sh -c 'printf \"a\tb\n\"'").
		WithEnv("MSG", "line one\n\tline two")
	require.NoError(t, spec.Validate())

	data, err := RenderManifest(spec)
	require.NoError(t, err)
	got, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, spec.Command, got.Command)
	assert.Equal(t, spec.Environment["MSG"], got.Environment["MSG"])
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("destroy")
	require.NoError(t, err)
	assert.Equal(t, ActionDestroy, a)

	a, err = ParseAction("")
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, a)

	_, err = ParseAction("nothing")
	assert.ErrorIs(t, err, ErrInvalidSpec)

	text, err := ActionDestroy.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "destroy", string(text))
}
