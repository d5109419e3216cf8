package vocab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
)

// ErrUnknownKind is returned for a manifest source of an unsupported kind.
var ErrUnknownKind = errors.New("unknown source kind")

// Manifest lists the vocabularies of one ontology build. Version identifies
// the resource release and keys the graph cache.
//
// Example:
//
//	version: "2024-06"
//	sources:
//	  - kind: hgnc
//	    path: hgnc.tsv
//	  - kind: famplex
//	    files:
//	      entities: famplex/entities.csv
//	      relations: famplex/relations.csv
//	      equivalences: famplex/equivalences.csv
//	  - kind: obo
//	    namespace: GO
//	    path: go.obo.gz
//	  - kind: activities
type Manifest struct {
	Version string           `yaml:"version" validate:"required"`
	Sources []ManifestSource `yaml:"sources" validate:"required,min=1,dive"`
}

// ManifestSource describes one loader.
type ManifestSource struct {
	Kind           string            `yaml:"kind" validate:"required"`
	Name           string            `yaml:"name"`
	Namespace      string            `yaml:"namespace"`
	Path           string            `yaml:"path"`
	Files          map[string]string `yaml:"files"`
	RemovePrefix   bool              `yaml:"remove_prefix"`
	XrefNamespaces []string          `yaml:"xref_namespaces"`
	Delimiter      string            `yaml:"delimiter" validate:"omitempty,len=1"`
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(content []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := validator.New().Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// FromManifest creates the loaders of a manifest, in manifest order. Resource
// paths are read through reader.
func FromManifest(m *Manifest, reader loader.ResourceReader) ([]loader.SourceLoader, error) {
	loaders := make([]loader.SourceLoader, 0, len(m.Sources))
	for i, src := range m.Sources {
		l, err := src.loader(reader)
		if err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i, src.Kind, err)
		}
		loaders = append(loaders, l)
	}
	return loaders, nil
}

func (s ManifestSource) file(reader loader.ResourceReader, path string) loader.ResourceFile {
	if path == "" {
		return loader.ResourceFile{}
	}
	return loader.NewResourceFile(loader.NewResourceFileParams{Path: path, Reader: reader})
}

func (s ManifestSource) require(keys ...string) error {
	for _, key := range keys {
		if key == "path" && s.Path == "" {
			return errors.New("path is required")
		}
		if key != "path" && s.Files[key] == "" {
			return fmt.Errorf("files.%s is required", key)
		}
	}
	return nil
}

func (s ManifestSource) loader(reader loader.ResourceReader) (loader.SourceLoader, error) {
	switch strings.ToLower(s.Kind) {
	case "hgnc":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		return &HGNCLoader{File: s.file(reader, s.Path)}, nil
	case "uniprot":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		return &UniProtLoader{File: s.file(reader, s.Path)}, nil
	case "famplex":
		if err := s.require("entities", "relations"); err != nil {
			return nil, err
		}
		return &FamPlexLoader{
			Entities:     s.file(reader, s.Files["entities"]),
			Relations:    s.file(reader, s.Files["relations"]),
			Equivalences: s.file(reader, s.Files["equivalences"]),
		}, nil
	case "obo":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		if s.Namespace == "" {
			return nil, errors.New("namespace is required")
		}
		return &OBOLoader{
			Namespace:      s.Namespace,
			File:           s.file(reader, s.Path),
			RemovePrefix:   s.RemovePrefix,
			XrefNamespaces: s.XrefNamespaces,
		}, nil
	case "mesh":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		return &MeSHLoader{
			File:       s.file(reader, s.Path),
			Xrefs:      s.file(reader, s.Files["xrefs"]),
			XrefSource: s.Name,
		}, nil
	case "mapping":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		l := &MappingLoader{Source: s.Name, File: s.file(reader, s.Path)}
		if s.Delimiter != "" {
			l.Comma = []rune(s.Delimiter)[0]
		}
		return l, nil
	case "ncit":
		if err := s.require("path"); err != nil {
			return nil, err
		}
		return &NCITLoader{File: s.file(reader, s.Path)}, nil
	case "activities":
		return ActivitiesLoader{}, nil
	case "modifications":
		return ModificationsLoader{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}
