package export

import (
	"io"

	"github.com/deepchat/server/session"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

func (e *YAMLExporter) Export(sess session.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(newDocument(sess))
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
