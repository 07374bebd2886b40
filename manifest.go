package smf

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ManifestPath returns the manifest path for the named service under dir
func ManifestPath(dir, name string) string {
	if dir == "" {
		dir = DefaultManifestDir
	}
	return filepath.Join(dir, name+ManifestExt)
}

// RenderManifest generates the SMF service bundle for spec. Output is
// deterministic: environment variables are written in key order.
func RenderManifest(spec *ServiceSpec) ([]byte, error) {
	if spec.Name == "" {
		return nil, &InvalidSpecError{Field: "name", Reason: "required"}
	}
	if spec.Command == "" {
		return nil, &InvalidSpecError{Field: "command", Reason: "required"}
	}

	var m strings.Builder

	m.WriteString("<?xml version=\"1.0\"?>\n")
	m.WriteString(fmt.Sprintf("<!DOCTYPE service_bundle SYSTEM \"%s\">\n", DTDPath))
	m.WriteString("<!-- Managed by go-smf -->\n")
	m.WriteString(fmt.Sprintf("<service_bundle type=\"manifest\" name=\"%s\">\n", xmlAttr(spec.Name)))
	m.WriteString(fmt.Sprintf("  <service name=\"%s/%s\" type=\"service\" version=\"1\">\n", ServiceCategory, xmlAttr(spec.Name)))
	m.WriteString("    <create_default_instance enabled=\"true\"/>\n")
	m.WriteString("    <single_instance/>\n")

	// Dependencies
	m.WriteString("    <dependency name=\"network\" grouping=\"require_all\" restart_on=\"error\" type=\"service\">\n")
	m.WriteString("      <service_fmri value=\"svc:/milestone/network:default\"/>\n")
	m.WriteString("    </dependency>\n")
	m.WriteString("    <dependency name=\"filesystem\" grouping=\"require_all\" restart_on=\"error\" type=\"service\">\n")
	m.WriteString("      <service_fmri value=\"svc:/system/filesystem/local\"/>\n")
	m.WriteString("    </dependency>\n")

	// Method context: working directory, credential and environment
	if spec.Directory != "" || spec.User != "" || len(spec.Environment) > 0 {
		if spec.Directory != "" {
			m.WriteString(fmt.Sprintf("    <method_context working_directory=\"%s\">\n", xmlAttr(spec.Directory)))
		} else {
			m.WriteString("    <method_context>\n")
		}
		if spec.User != "" {
			m.WriteString(fmt.Sprintf("      <method_credential user=\"%s\"/>\n", xmlAttr(spec.User)))
		}
		if len(spec.Environment) > 0 {
			keys := make([]string, 0, len(spec.Environment))
			for key := range spec.Environment {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			m.WriteString("      <method_environment>\n")
			for _, key := range keys {
				m.WriteString(fmt.Sprintf("        <envvar name=\"%s\" value=\"%s\"/>\n", xmlAttr(key), xmlAttr(spec.Environment[key])))
			}
			m.WriteString("      </method_environment>\n")
		}
		m.WriteString("    </method_context>\n")
	}

	m.WriteString(fmt.Sprintf("    <exec_method type=\"method\" name=\"start\" exec=\"%s\" timeout_seconds=\"%d\"/>\n", xmlAttr(spec.Command), DefaultMethodTimeout))
	m.WriteString(fmt.Sprintf("    <exec_method type=\"method\" name=\"stop\" exec=\":kill\" timeout_seconds=\"%d\"/>\n", DefaultMethodTimeout))

	// The start method is the service process itself
	m.WriteString("    <property_group name=\"startd\" type=\"framework\">\n")
	m.WriteString("      <propval name=\"duration\" type=\"astring\" value=\"child\"/>\n")
	m.WriteString("      <propval name=\"ignore_error\" type=\"astring\" value=\"core,signal\"/>\n")
	m.WriteString("    </property_group>\n")

	m.WriteString("    <stability value=\"Unstable\"/>\n")
	m.WriteString("    <template>\n")
	m.WriteString("      <common_name>\n")
	m.WriteString(fmt.Sprintf("        <loctext xml:lang=\"C\">%s</loctext>\n", xmlAttr(spec.Name)))
	m.WriteString("      </common_name>\n")
	m.WriteString("    </template>\n")
	m.WriteString("  </service>\n")
	m.WriteString("</service_bundle>\n")

	return []byte(m.String()), nil
}

// xmlAttr escapes s for use in an attribute value or character data
func xmlAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type manifestXML struct {
	XMLName xml.Name `xml:"service_bundle"`
	Name    string   `xml:"name,attr"`
	Service struct {
		Name          string `xml:"name,attr"`
		MethodContext *struct {
			WorkingDirectory string `xml:"working_directory,attr"`
			Credential       *struct {
				User string `xml:"user,attr"`
			} `xml:"method_credential"`
			Environment []struct {
				Name  string `xml:"name,attr"`
				Value string `xml:"value,attr"`
			} `xml:"method_environment>envvar"`
		} `xml:"method_context"`
		ExecMethods []struct {
			Name string `xml:"name,attr"`
			Exec string `xml:"exec,attr"`
		} `xml:"exec_method"`
	} `xml:"service"`
}

// ParseManifest reads a manifest produced by RenderManifest back into a
// ServiceSpec with ActionCreate.
func ParseManifest(data []byte) (*ServiceSpec, error) {
	var doc manifestXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}

	if doc.Name == "" {
		return nil, fmt.Errorf("%w: service_bundle has no name", ErrManifestInvalid)
	}
	if want := ServiceCategory + "/" + doc.Name; doc.Service.Name != want {
		return nil, fmt.Errorf("%w: service %q does not match bundle %q", ErrManifestInvalid, doc.Service.Name, want)
	}

	spec := NewServiceSpec(doc.Name)
	for _, method := range doc.Service.ExecMethods {
		if method.Name == "start" {
			spec.Command = method.Exec
		}
	}
	if mc := doc.Service.MethodContext; mc != nil {
		spec.Directory = mc.WorkingDirectory
		if mc.Credential != nil {
			spec.User = mc.Credential.User
		}
		for _, env := range mc.Environment {
			spec.Environment[env.Name] = env.Value
		}
	}

	return spec, nil
}
