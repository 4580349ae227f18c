package ddbstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/acksell/ddblite/ddberr"
)

// ImportStatus mirrors ExportStatus's IN_PROGRESS/COMPLETED/FAILED vocabulary
// for the import side of the lifecycle.
type ImportStatus string

const (
	ImportInProgress ImportStatus = "IN_PROGRESS"
	ImportCompleted  ImportStatus = "COMPLETED"
	ImportFailed     ImportStatus = "FAILED"
)

// ImportDescriptor is the catalog entry for one ImportTable call, retained
// indefinitely.
type ImportDescriptor struct {
	ImportID           string
	TableName          string
	Status             ImportStatus
	StartTime          int64
	EndTime            int64
	ProcessedItemCount int64
	ImportedItemCount  int64
	ErrorCount         int64
	InputDir           string // local directory standing in for the {bucket}/AWSDynamoDB/{exportId}/ prefix
	FailureMessage     string
}

// ImportTable reads back the manifest-summary.json + data/*.json layout an
// earlier ExportTableToPointInTime produced and replays every item into
// tableName, which
// must already exist with a compatible key schema — the table-creation
// step is left to the caller (CreateTable, or the CLI's create-table
// command before import); this store's ImportTable never creates a table.
func (s *Store) ImportTable(tableName, inputDir string) (*ImportDescriptor, error) {
	manifestPath := filepath.Join(inputDir, "manifest-summary.json")
	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, ddberr.Validation("read manifest-summary.json: %v", err)
	}
	var manifest exportManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, ddberr.Validation("parse manifest-summary.json: %v", err)
	}

	dataDir := filepath.Join(inputDir, "data")
	shardPaths, err := filepath.Glob(filepath.Join(dataDir, "*.json"))
	if err != nil || len(shardPaths) == 0 {
		return nil, ddberr.Validation("no data shards found under %q", dataDir)
	}

	s.lock()
	defer s.unlock()

	t, ok := s.tables[tableName]
	if !ok {
		return nil, ddberr.NotFound("table %q not found", tableName)
	}

	importID := uuid.New().String()
	desc := &ImportDescriptor{
		ImportID:  importID,
		TableName: tableName,
		Status:    ImportInProgress,
		StartTime: time.Now().Unix(),
		InputDir:  inputDir,
	}
	if err := s.insertImportRow(desc); err != nil {
		return nil, err
	}

	for _, shardPath := range shardPaths {
		if err := s.importShardLocked(t, shardPath, desc); err != nil {
			desc.Status = ImportFailed
			desc.EndTime = time.Now().Unix()
			desc.FailureMessage = err.Error()
			_ = s.updateImportRow(desc)
			s.log.Error("import failed", "table", tableName, "importId", importID, "error", err)
			return desc, ddberr.Internal("import %s: %v", importID, err)
		}
	}

	desc.Status = ImportCompleted
	desc.EndTime = time.Now().Unix()
	if err := s.updateImportRow(desc); err != nil {
		return nil, err
	}
	s.log.Info("import completed", "table", tableName, "importId", importID, "items", desc.ImportedItemCount)
	return desc, nil
}

func (s *Store) importShardLocked(t *Table, shardPath string, desc *ImportDescriptor) error {
	f, err := os.Open(shardPath)
	if err != nil {
		return fmt.Errorf("open shard %s: %w", shardPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		desc.ProcessedItemCount++

		var wrapped exportedItemLine
		if err := json.Unmarshal(line, &wrapped); err != nil {
			desc.ErrorCount++
			continue
		}
		item, err := UnmarshalItem(wrapped.Item)
		if err != nil {
			desc.ErrorCount++
			continue
		}

		pk, sk, err := itemKeyCollation(t.Keys, item)
		if err != nil {
			desc.ErrorCount++
			continue
		}
		_, existed, err := s.fetchItemRowLocked(t, pk, sk)
		if err != nil {
			return err
		}
		if err := s.writeItemRowLocked(t, pk, sk, item); err != nil {
			desc.ErrorCount++
			continue
		}
		if !existed {
			t.ItemCount++
		}
		desc.ImportedItemCount++
	}
	return scanner.Err()
}

// DescribeImport looks up a previously issued import descriptor.
func (s *Store) DescribeImport(importID string) (*ImportDescriptor, error) {
	s.lock()
	defer s.unlock()
	return s.loadImportRow(importID)
}

func (s *Store) insertImportRow(d *ImportDescriptor) error {
	_, err := s.db.Exec(`INSERT INTO ddb_imports (import_id, table_name, status, start_time, end_time, processed_item_count, imported_item_count, error_count, input_dir, failure_message)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, ?, '')`,
		d.ImportID, d.TableName, string(d.Status), d.StartTime, d.InputDir)
	return err
}

func (s *Store) updateImportRow(d *ImportDescriptor) error {
	_, err := s.db.Exec(`UPDATE ddb_imports SET status = ?, end_time = ?, processed_item_count = ?, imported_item_count = ?, error_count = ?, failure_message = ? WHERE import_id = ?`,
		string(d.Status), d.EndTime, d.ProcessedItemCount, d.ImportedItemCount, d.ErrorCount, d.FailureMessage, d.ImportID)
	return err
}

func (s *Store) loadImportRow(importID string) (*ImportDescriptor, error) {
	d := &ImportDescriptor{}
	var status string
	err := s.db.QueryRow(`SELECT import_id, table_name, status, start_time, end_time, processed_item_count, imported_item_count, error_count, input_dir, failure_message FROM ddb_imports WHERE import_id = ?`, importID).
		Scan(&d.ImportID, &d.TableName, &status, &d.StartTime, &d.EndTime, &d.ProcessedItemCount, &d.ImportedItemCount, &d.ErrorCount, &d.InputDir, &d.FailureMessage)
	if err != nil {
		return nil, ddberr.NotFound("import %q not found", importID)
	}
	d.Status = ImportStatus(status)
	return d, nil
}
