package services

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reqboard/reqboard/internal/importer"
	"github.com/reqboard/reqboard/internal/models"
	"github.com/reqboard/reqboard/pkg/logger"
	"gorm.io/gorm"
)

type ImportService struct {
	db     *gorm.DB
	logSvc *SystemLogService
}

func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{
		db:     db,
		logSvc: NewSystemLogService(db),
	}
}

// ImportUpdate pairs a row classified as an update with the currently
// persisted values of its target, for diff display in the preview.
type ImportUpdate struct {
	Row           importer.Row           `json:"row"`
	CurrentValues map[string]interface{} `json:"current_values"`
}

type ImportPreviewResult struct {
	Inserts []importer.Row      `json:"inserts"`
	Updates []ImportUpdate      `json:"updates"`
	Errors  []importer.RowError `json:"errors"`
	Total   int                 `json:"total"`
}

type ImportCommitResult struct {
	BatchID     string   `json:"batch_id"`
	NewFields   []string `json:"new_fields"`
	RowsApplied int      `json:"rows_applied"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
}

// numericFields are coerced from empty string to NULL and otherwise to
// integer before the upsert.
var numericFields = map[string]bool{
	"prioritization": true,
	"weight":         true,
	"rank":           true,
}

// fieldAliases collapses known spelling variants onto one storage column.
var fieldAliases = map[string]string{
	"productowner": "product_owner",
}

var columnNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ErrBadRowValue marks a cell value that cannot be coerced to its column
// type. It aborts the remaining commit loop.
var ErrBadRowValue = errors.New("bad row value")

// ErrBadFieldName marks a mapping field that does not sanitize to a safe
// column identifier.
var ErrBadFieldName = errors.New("invalid field name")

// NormalizeFieldName canonicalizes a mapping field name into a storage
// column name: trimmed, lowercased, separators collapsed to underscores,
// and known aliases resolved.
func NormalizeFieldName(field string) string {
	name := strings.ToLower(strings.TrimSpace(field))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	if alias, ok := fieldAliases[name]; ok {
		return alias
	}
	return name
}

// Preview extracts and classifies rows without mutating storage. It is a
// pure function over (file, mapping): running it before Commit shows
// exactly the rows Commit would apply.
func (s *ImportService) Preview(file io.Reader, mapping map[string]string) (*ImportPreviewResult, error) {
	rows, rowErrors, err := importer.ExtractRows(file, mapping)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingKeys(rows)
	if err != nil {
		return nil, err
	}

	classified := importer.Classify(rows, existing)

	updates := make([]ImportUpdate, 0, len(classified.Updates))
	for _, row := range classified.Updates {
		current, err := s.currentValues(row.Key())
		if err != nil {
			return nil, err
		}
		updates = append(updates, ImportUpdate{Row: row, CurrentValues: current})
	}

	if classified.Inserts == nil {
		classified.Inserts = []importer.Row{}
	}
	if rowErrors == nil {
		rowErrors = []importer.RowError{}
	}

	return &ImportPreviewResult{
		Inserts: classified.Inserts,
		Updates: updates,
		Errors:  rowErrors,
		Total:   len(rows) + len(rowErrors),
	}, nil
}

// Commit applies extracted rows to storage. Mapped fields with no matching
// storage column are first added as nullable text columns (additive-only,
// idempotent). Each row is an independent upsert: the batch is not atomic,
// and a malformed row aborts the remaining loop with the prior rows already
// committed.
func (s *ImportService) Commit(file io.Reader, mapping map[string]string) (*ImportCommitResult, error) {
	rows, rowErrors, err := importer.ExtractRows(file, mapping)
	if err != nil {
		return nil, err
	}

	newFields, err := s.extendSchema(mapping)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingKeys(rows)
	if err != nil {
		return nil, err
	}

	result := &ImportCommitResult{
		BatchID:   uuid.NewString(),
		NewFields: newFields,
	}

	for _, row := range rows {
		values, err := buildRowValues(row)
		if err != nil {
			s.logCommit(result, len(rows), "import aborted: "+err.Error())
			return result, fmt.Errorf("row %d: %w", row.Number, err)
		}

		key := row.Key()
		if existing[key] {
			values["updated_at"] = time.Now()
			if err := s.db.Model(&models.Requirement{}).Where(qcol(s.db, "key")+" = ?", key).Updates(values).Error; err != nil {
				s.logCommit(result, len(rows), "import aborted: "+err.Error())
				return result, fmt.Errorf("row %d: %w", row.Number, err)
			}
			result.Updated++
		} else {
			values["key"] = key
			values["created_at"] = time.Now()
			values["updated_at"] = time.Now()
			if err := s.db.Model(&models.Requirement{}).Create(values).Error; err != nil {
				s.logCommit(result, len(rows), "import aborted: "+err.Error())
				return result, fmt.Errorf("row %d: %w", row.Number, err)
			}
			result.Inserted++
		}
		result.RowsApplied++
	}

	msg := fmt.Sprintf("imported %d rows (%d inserted, %d updated, %d skipped for missing key)",
		result.RowsApplied, result.Inserted, result.Updated, len(rowErrors))
	s.logCommit(result, len(rows), msg)

	return result, nil
}

// extendSchema adds a nullable text column for every normalized mapping
// field the requirements table does not have yet. Existing columns are never
// altered or removed; re-running with the same mapping is a no-op.
func (s *ImportService) extendSchema(mapping map[string]string) ([]string, error) {
	newFields := make([]string, 0)

	for field := range mapping {
		column := NormalizeFieldName(field)
		if column == "" || column == importer.KeyField {
			continue
		}
		if !columnNamePattern.MatchString(column) {
			return nil, fmt.Errorf("%w: %q", ErrBadFieldName, field)
		}
		if s.db.Migrator().HasColumn(&models.Requirement{}, column) {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE requirements ADD COLUMN %s TEXT", qcol(s.db, column))
		if err := s.db.Exec(ddl).Error; err != nil {
			return nil, fmt.Errorf("add column %q: %w", column, err)
		}
		logger.Info().Str("column", column).Msg("extended requirements schema")
		newFields = append(newFields, column)
	}

	sort.Strings(newFields)
	return newFields, nil
}

// buildRowValues converts a row's mapped fields into a sparse column/value
// map. Only columns the row supplies appear; on update everything else is
// left untouched. Numeric fields coerce empty to NULL, rank defaults to 0.
func buildRowValues(row importer.Row) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(row.Fields))

	for field, raw := range row.Fields {
		column := NormalizeFieldName(field)
		if column == "" || column == importer.KeyField {
			continue
		}

		value := strings.TrimSpace(raw)
		if numericFields[column] {
			if value == "" {
				if column == "rank" {
					values[column] = 0
				} else {
					values[column] = nil
				}
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %q is not an integer", ErrBadRowValue, column, value)
			}
			values[column] = n
			continue
		}

		values[column] = raw
	}

	return values, nil
}

// existingKeys returns the set of row keys already persisted, resolved with
// one batched lookup per import.
func (s *ImportService) existingKeys(rows []importer.Row) (map[string]bool, error) {
	if len(rows) == 0 {
		return map[string]bool{}, nil
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key())
	}

	var found []string
	if err := s.db.Model(&models.Requirement{}).
		Where(qcol(s.db, "key")+" IN ?", keys).
		Pluck("key", &found).Error; err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(found))
	for _, k := range found {
		existing[k] = true
	}
	return existing, nil
}

// currentValues loads the full persisted row (fixed plus dynamic columns)
// as a map for preview diff display.
func (s *ImportService) currentValues(key string) (map[string]interface{}, error) {
	current := map[string]interface{}{}
	if err := s.db.Table("requirements").
		Where(qcol(s.db, "key")+" = ?", key).
		Limit(1).
		Find(&current).Error; err != nil {
		return nil, err
	}
	return current, nil
}

func (s *ImportService) logCommit(result *ImportCommitResult, totalRows int, msg string) {
	extra := fmt.Sprintf(`{"batch_id":%q,"total_rows":%d,"new_fields":%d}`,
		result.BatchID, totalRows, len(result.NewFields))
	s.logSvc.Log("info", "import", "commit", msg, extra)
}
