package bankfile

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/opobank/backend/internal/domain/questionbank"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export rebuilds a bank file document from a loaded repository. Loading
// the result yields an equivalent repository.
func Export(repo *questionbank.Repository) (Document, error) {
	doc := Document{Version: SupportedVersion}
	for key := range repo.Categories() {
		themes, err := repo.Themes(key)
		if err != nil {
			return Document{}, err
		}
		category := questionbank.Category{Key: key, Themes: make([]questionbank.Theme, 0, len(themes))}
		for _, info := range themes {
			questions, err := repo.Questions(key, info.ID)
			if err != nil {
				return Document{}, err
			}
			category.Themes = append(category.Themes, questionbank.Theme{
				ID:        info.ID,
				Name:      info.Name,
				Questions: questions,
			})
		}
		doc.Categories = append(doc.Categories, category)
	}
	return doc, nil
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown bank file format %q", format)
	}
}
