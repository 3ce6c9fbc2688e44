package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR}} placeholders in YAML content against the
// current environment, used by LoadSettings before unmarshaling the
// optional settings file (§2 ambient configuration). A variable absent
// from the environment expands to the empty string. Malformed template
// syntax — including anything that isn't this exact dotted-field form,
// such as shell-style $VAR — is passed through byte-for-byte unchanged
// so the YAML parser (or its own error message) handles it instead.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("settings").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap()); err != nil {
		return data
	}
	return buf.Bytes()
}

func envMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env
}
