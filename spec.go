package smf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServiceSpec is the desired definition of an SMF service
type ServiceSpec struct {
	// Name is the service name; the manifest path and FMRI are derived from it
	Name string `yaml:"name" validate:"required,smfname"`
	// Command is the start method command line
	Command string `yaml:"command"`
	// User is the user the start method runs as
	User string `yaml:"user,omitempty"`
	// Environment contains environment variables for the start method
	Environment map[string]string `yaml:"environment,omitempty"`
	// Directory is the working directory of the start method
	Directory string `yaml:"directory,omitempty" validate:"omitempty,startswith=/"`
	// Action is the desired lifecycle action
	Action Action `yaml:"action,omitempty"`
}

// NewServiceSpec creates a ServiceSpec for name with ActionCreate
func NewServiceSpec(name string) *ServiceSpec {
	return &ServiceSpec{
		Name:        name,
		Environment: make(map[string]string),
		Action:      ActionCreate,
	}
}

// WithCommand sets the start command
func (s *ServiceSpec) WithCommand(cmd string) *ServiceSpec {
	s.Command = cmd
	return s
}

// WithUser sets the user the service runs as
func (s *ServiceSpec) WithUser(user string) *ServiceSpec {
	s.User = user
	return s
}

// WithEnv adds an environment variable
func (s *ServiceSpec) WithEnv(key, value string) *ServiceSpec {
	if s.Environment == nil {
		s.Environment = make(map[string]string)
	}
	s.Environment[key] = value
	return s
}

// WithDirectory sets the working directory
func (s *ServiceSpec) WithDirectory(dir string) *ServiceSpec {
	s.Directory = dir
	return s
}

// WithAction sets the desired action
func (s *ServiceSpec) WithAction(a Action) *ServiceSpec {
	s.Action = a
	return s
}

// FMRI returns the service FMRI generated manifests declare
func (s *ServiceSpec) FMRI() string {
	return "svc:/" + ServiceCategory + "/" + s.Name
}

// Validate checks s. Destroy only needs a valid name. Every field must be
// text a manifest can carry unchanged.
func (s *ServiceSpec) Validate() error {
	if s == nil {
		return &InvalidSpecError{Field: "spec", Reason: "nil service spec"}
	}
	if err := validateStruct(s); err != nil {
		return err
	}
	if s.Action == ActionCreate && s.Command == "" {
		return &InvalidSpecError{Field: "command", Reason: "required for create"}
	}
	for _, f := range []struct{ name, value string }{
		{"command", s.Command},
		{"user", s.User},
		{"directory", s.Directory},
	} {
		if !manifestText(f.value) {
			return &InvalidSpecError{Field: f.name, Reason: fmt.Sprintf("%q contains characters a manifest cannot hold", f.value)}
		}
	}
	for key, value := range s.Environment {
		if !envKeyRe.MatchString(key) {
			return &InvalidSpecError{Field: "environment", Reason: fmt.Sprintf("invalid variable name %q", key)}
		}
		if !manifestText(value) {
			return &InvalidSpecError{Field: "environment." + key, Reason: fmt.Sprintf("%q contains characters a manifest cannot hold", value)}
		}
	}
	if s.Action != ActionCreate && s.Action != ActionDestroy {
		return &InvalidSpecError{Field: "action", Reason: fmt.Sprintf("unknown action %d", s.Action)}
	}
	return nil
}

// manifestText reports whether v is valid UTF-8 made only of XML 1.0
// characters. Carriage returns are refused as XML parsers fold them into
// newlines.
func manifestText(v string) bool {
	if !utf8.ValidString(v) {
		return false
	}
	for _, r := range v {
		switch {
		case r == '\t' || r == '\n':
		case r < 0x20:
			return false
		case r == 0xFFFE, r == 0xFFFF:
			return false
		}
	}
	return true
}

var (
	serviceNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]*$`)
	envKeyRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("smfname", func(fl validator.FieldLevel) bool {
			return serviceNameRe.MatchString(fl.Field().String())
		})
	})
	return validate
}

// validateStruct runs struct tag validation and reports the first failure
// as an *InvalidSpecError
func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidSpecError{
			Field:  fe.Namespace(),
			Reason: fmt.Sprintf("failed %q check (value %q)", fe.Tag(), fmt.Sprint(fe.Value())),
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
}

type specFile struct {
	Services []*ServiceSpec `yaml:"services"`
}

// LoadSpecs reads service specs from a YAML file of the form
//
//	services:
//	  - name: webapp
//	    command: /usr/bin/webapp
//	    user: app
//	    directory: /opt/webapp
//	    environment:
//	      PORT: "8080"
func LoadSpecs(path string) ([]*ServiceSpec, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	return ParseSpecs(data)
}

// ParseSpecs decodes and validates YAML service specs
func ParseSpecs(data []byte) ([]*ServiceSpec, error) {
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decoding yaml: %w", ErrInvalidSpec, err)
	}

	seen := make(map[string]struct{}, len(f.Services))
	for i, spec := range f.Services {
		if spec == nil {
			return nil, &InvalidSpecError{Field: fmt.Sprintf("services[%d]", i), Reason: "empty entry"}
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, &InvalidSpecError{Field: fmt.Sprintf("services[%d].name", i), Reason: "duplicate service " + spec.Name}
		}
		seen[spec.Name] = struct{}{}
	}

	return f.Services, nil
}
