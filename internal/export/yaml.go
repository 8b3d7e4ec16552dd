package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports a conversation using the same flattened envelope as
// JSONExporter, so the two formats are structurally interchangeable.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(record Record, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(toJSONDoc(record))
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
