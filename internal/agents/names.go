package agents

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/gridworld/internal/entropy"
)

//go:embed names.yaml
var defaultNamesYAML []byte

// Names generates first names by sex and family names.
type Names interface {
	FirstName(sex Sex, rng entropy.Source) string
	LastName(rng entropy.Source) string
}

// NameList is a Names backed by fixed lists.
type NameList struct {
	Male   []string `yaml:"male"`
	Female []string `yaml:"female"`
	Last   []string `yaml:"last"`
}

var errEmptyNameList = errors.New("name list must have male, female and last entries")

// DefaultNames returns the built-in name lists.
func DefaultNames() *NameList {
	nl, err := parseNames(defaultNamesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded names.yaml: %v", err))
	}
	return nl
}

// LoadNames reads a YAML name list with male, female and last keys.
func LoadNames(path string) (*NameList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read name list: %w", err)
	}
	nl, err := parseNames(raw)
	if err != nil {
		return nil, fmt.Errorf("parse name list %s: %w", path, err)
	}
	return nl, nil
}

func parseNames(raw []byte) (*NameList, error) {
	var nl NameList
	if err := yaml.Unmarshal(raw, &nl); err != nil {
		return nil, err
	}
	if len(nl.Male) == 0 || len(nl.Female) == 0 || len(nl.Last) == 0 {
		return nil, errEmptyNameList
	}
	return &nl, nil
}

func (nl *NameList) FirstName(sex Sex, rng entropy.Source) string {
	if sex == SexFemale {
		return nl.Female[rng.IntN(len(nl.Female))]
	}
	return nl.Male[rng.IntN(len(nl.Male))]
}

func (nl *NameList) LastName(rng entropy.Source) string {
	return nl.Last[rng.IntN(len(nl.Last))]
}
