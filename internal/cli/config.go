package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the flag surface as an optional YAML settings
// file. Precedence is flags > file > interactive prompt, resolved by
// cmd/fdsbatch; empty fields simply mean "not supplied here".
//
//	fds2ascii: /opt/fds/bin/fds2ascii
//	results:   /data/run42
//	out:       /data/run42-csv
//	chid:      run42
//	time:      0-200
//	vars:      9
//	groups:    1-3,7
type FileConfig struct {
	Tool   string `yaml:"fds2ascii"`
	Input  string `yaml:"results"`
	Output string `yaml:"out"`
	CHID   string `yaml:"chid"`
	Time   string `yaml:"time"`
	Vars   int    `yaml:"vars"`
	Groups string `yaml:"groups"`
}

// LoadConfig reads and decodes one settings file. Unknown keys are
// rejected so a typo does not silently fall through to a prompt.
func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf("reading config: %v", err)}
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf("parsing config %s: %v", path, err)}
	}
	return &cfg, nil
}
