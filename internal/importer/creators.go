// Package importer bootstraps creators and their followed sources from a
// CSV file. Rows share a creator when they repeat a handle, so one
// creator can carry sources on several platforms.
package importer

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
)

// Importer handles the creator/source import process
type Importer struct {
	db *database.DB
}

// NewImporter creates a new creator importer
func NewImporter(db *database.DB) *Importer {
	return &Importer{db: db}
}

// ImportCreators imports creators and sources from a CSV file
func (i *Importer) ImportCreators(csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting creator import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	if err := i.parseAndImport(f); err != nil {
		return fmt.Errorf("failed to import creators: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImport(csvData io.Reader) error {
	log.Debug().Msg("Starting to parse and import creators")

	reader := newCSVReader(csvData)

	header, err := reader.Read()
	if err != nil {
		return err
	}

	log.Debug().Strs("header", header).Msg("CSV header read")

	for _, required := range []string{"handle", "platform", "url"} {
		if findColumnIndex(header, required) < 0 {
			return fmt.Errorf("required column '%s' not found in CSV header", required)
		}
	}

	handleIdx := findColumnIndex(header, "handle")
	displayNameIdx := findColumnIndex(header, "display_name")
	platformIdx := findColumnIndex(header, "platform")
	urlIdx := findColumnIndex(header, "url")
	commentsIdx := findColumnIndex(header, "comments")
	languageIdx := findColumnIndex(header, "language")
	statusIdx := findColumnIndex(header, "status")

	creatorIDs := make(map[string]int64)

	lineCount := 1 // Header was already read
	successCount := 0
	var importErrors []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}

		handle := safeGetValue(record, handleIdx).String
		if handle == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty handle")
			importErrors = append(importErrors, fmt.Sprintf("line %d: empty handle", lineCount))
			continue
		}

		source := models.NewCreatorSource()
		source.Platform = models.Platform(strings.ToLower(safeGetValue(record, platformIdx).String))
		source.URL = safeGetValue(record, urlIdx).String
		source.Comments = safeGetValue(record, commentsIdx)
		source.Language = safeGetValue(record, languageIdx)
		if status := safeGetValue(record, statusIdx); status.Valid {
			source.Status = status.String
		}

		logger := log.With().
			Int("line", lineCount).
			Str("handle", handle).
			Str("platform", string(source.Platform)).
			Str("url", source.URL).
			Logger()

		if source.URL == "" {
			logger.Warn().Msg("Skipping row with empty URL")
			importErrors = append(importErrors, fmt.Sprintf("line %d: empty URL", lineCount))
			continue
		}
		if !source.Platform.Valid() {
			logger.Warn().Msg("Skipping row with unknown platform")
			importErrors = append(importErrors, fmt.Sprintf("line %d: unknown platform %q", lineCount, source.Platform))
			continue
		}

		creatorID, known := creatorIDs[handle]
		if !known {
			creator := models.NewCreator()
			creator.Handle = handle
			creator.DisplayName = safeGetValue(record, displayNameIdx)

			creatorID, err = i.db.InsertCreator(creator)
			if err != nil {
				if strings.Contains(err.Error(), "UNIQUE constraint failed") {
					// Creator already imported on a previous run; reuse it.
					if err := i.db.Get(&creatorID, "SELECT id FROM creators WHERE handle = ?", handle); err != nil {
						logger.Error().Err(err).Msg("Failed to look up existing creator")
						importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
						continue
					}
				} else {
					logger.Error().Err(err).Msg("Failed to insert creator")
					importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
					continue
				}
			}
			creatorIDs[handle] = creatorID
		}
		source.CreatorID = creatorID

		logger.Debug().Msg("Processing source")

		err = i.db.InsertCreatorSource(source)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				logger.Warn().Msg("Duplicate URL")
				importErrors = append(importErrors, fmt.Sprintf("line %d: duplicate URL: %s", lineCount, source.URL))
			} else {
				logger.Error().Err(err).Msg("Failed to insert source")
				importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			}
			continue
		}

		successCount++
		logger.Debug().Msg("Source inserted successfully")
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("creators", len(creatorIDs)).
		Int("errors", len(importErrors)).
		Msg("Import summary")

	fmt.Printf("Imported %d sources for %d creators\n", successCount, len(creatorIDs))
	if len(importErrors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(importErrors))
		for _, e := range importErrors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(col, columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns a sql.NullString from a record at the specified index.
// If the index is out of bounds or the value is empty, it returns an invalid NullString.
func safeGetValue(record []string, index int) sql.NullString {
	if index >= 0 && index < len(record) && record[index] != "" {
		return sql.NullString{
			String: record[index],
			Valid:  true,
		}
	}
	return sql.NullString{Valid: false}
}
