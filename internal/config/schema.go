package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSchema загружает имена колонок таблицы из YAML файла.
// Unset keys keep their defaults so a schema file may rename a single column.
func LoadSchema(filePath string) (*SchemaConfig, error) {
	if filePath == "" {
		return nil, fmt.Errorf("schema file path is empty")
	}

	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("schema file not found: %s: %w", filePath, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close schema file: %v\n", closeErr)
		}
	}()

	schema := DefaultSchema()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	if err := validateSchema(&schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

// validateSchema проверяет минимальный набор колонок
func validateSchema(s *SchemaConfig) error {
	if strings.TrimSpace(s.TitleField) == "" {
		return fmt.Errorf("schema.title_field is required")
	}
	if strings.TrimSpace(s.StatusField) == "" {
		return fmt.Errorf("schema.status_field is required")
	}
	if strings.TrimSpace(s.FirstParagraphField) == "" {
		return fmt.Errorf("schema.first_paragraph_field is required")
	}
	if strings.TrimSpace(s.SecondParagraphField) == "" {
		return fmt.Errorf("schema.second_paragraph_field is required")
	}
	if strings.EqualFold(strings.TrimSpace(s.FirstParagraphField), strings.TrimSpace(s.SecondParagraphField)) {
		return fmt.Errorf("schema paragraph fields must differ")
	}
	if strings.TrimSpace(s.PublishedValue) == "" {
		return fmt.Errorf("schema.published_value is required")
	}
	return nil
}
