package models

import (
	"encoding/json"
	"strings"
)

// Song is a catalog entry. FileName is the content key used to fetch the song's document.
type Song struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	FileName string   `json:"fileName"`
}

// UnmarshalJSON accepts both catalog spellings: title|name and fileName|src.
func (s *Song) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title    string   `json:"title"`
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		FileName string   `json:"fileName"`
		Src      string   `json:"src"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Song{Title: raw.Title, Category: raw.Category, Tags: raw.Tags, FileName: raw.FileName}
	if s.Title == "" {
		s.Title = raw.Name
	}
	if s.FileName == "" {
		s.FileName = raw.Src
	}
	return nil
}

// Key returns the content key without a trailing .html extension.
func (s Song) Key() string {
	return strings.TrimSuffix(s.FileName, ".html")
}

// Catalog is the song index served by the catalog service.
type Catalog struct {
	Songs []Song `json:"songs"`
}
