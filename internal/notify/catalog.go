package notify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Catalog holds the generic toast messages used when the server does not send one.
type Catalog struct {
	SessionExpired    string `yaml:"sessionExpired"`
	NoPermission      string `yaml:"noPermission"`
	NotFound          string `yaml:"notFound"`
	ValidationFailed  string `yaml:"validationFailed"`
	BadRequest        string `yaml:"badRequest"`
	SystemError       string `yaml:"systemError"`
	ConnectionTimeout string `yaml:"connectionTimeout"`
	ConnectionLost    string `yaml:"connectionLost"`
	Unexpected        string `yaml:"unexpected"`
}

func DefaultCatalog() Catalog {
	var catalog Catalog
	// the embedded file is part of the build, failing to parse it is a programming error
	if err := yaml.Unmarshal(defaultMessages, &catalog); err != nil {
		panic(fmt.Sprintf("cannot parse the embedded message catalog: %s", err.Error()))
	}
	return catalog
}

// LoadCatalog reads the catalog at path over the embedded defaults, messages missing from the
// file keep their default value. An empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("cannot read the message catalog %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("cannot parse the message catalog %s: %w", path, err)
	}
	return catalog, nil
}
