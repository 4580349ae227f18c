package ddbstore

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/acksell/ddblite/ddberr"
)

// ExportStatus mirrors DynamoDB's Export/Import lifecycle vocabulary
// (IN_PROGRESS/COMPLETED/FAILED), reusing IndexStatus's pattern of a small
// string enum rather than a separate parallel status package.
type ExportStatus string

const (
	ExportInProgress ExportStatus = "IN_PROGRESS"
	ExportCompleted  ExportStatus = "COMPLETED"
	ExportFailed     ExportStatus = "FAILED"
)

// ExportDescriptor is the catalog entry for one ExportTableToPointInTime
// call, retained indefinitely.
type ExportDescriptor struct {
	ExportID        string
	TableName       string
	Status          ExportStatus
	StartTime       int64
	EndTime         int64
	ItemCount       int64
	BilledSizeBytes int64
	ExportFormat    string // "DYNAMODB_JSON", the only format this store writes
	OutputDir       string // local directory standing in for the {bucket}/AWSDynamoDB/{exportId}/ prefix
	FailureMessage  string
}

// exportManifest is the on-disk shape of manifest-summary.json.
type exportManifest struct {
	ExportID        string `json:"exportId"`
	TableName       string `json:"tableName"`
	Status          string `json:"status"`
	ItemCount       int64  `json:"itemCount"`
	BilledSizeBytes int64  `json:"billedSizeBytes"`
	ExportFormat    string `json:"exportFormat"`
}

// exportedItemLine is one line of data/*.json: {"Item": {...attribute-value map...}}.
type exportedItemLine struct {
	Item json.RawMessage `json:"Item"`
}

// ExportTableToPointInTime snapshots a table's current items to
// outputDir/AWSDynamoDB/{exportId}/ as manifest-summary.json plus a single
// data/0000.json newline-delimited JSON shard. The worker runs synchronously
// relative to this call — it transitions IN_PROGRESS -> COMPLETED/FAILED
// without any internal polling loop, since the store has no asynchronous
// execution model to poll.
func (s *Store) ExportTableToPointInTime(tableName, outputDir string) (*ExportDescriptor, error) {
	s.lock()
	t, ok := s.tables[tableName]
	if !ok {
		s.unlock()
		return nil, ddberr.NotFound("table %q not found", tableName)
	}

	exportID := uuid.New().String()
	desc := &ExportDescriptor{
		ExportID:     exportID,
		TableName:    tableName,
		Status:       ExportInProgress,
		StartTime:    time.Now().Unix(),
		ExportFormat: "DYNAMODB_JSON",
		OutputDir:    filepath.Join(outputDir, "AWSDynamoDB", exportID),
	}
	if err := s.insertExportRow(desc); err != nil {
		s.unlock()
		return nil, err
	}

	rows, err := s.db.Query(fmt.Sprintf(`SELECT doc, expires_at FROM %s`, itemTableName(tableName)))
	if err != nil {
		return s.failExport(desc, err)
	}

	dataDir := filepath.Join(desc.OutputDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		rows.Close()
		return s.failExport(desc, fmt.Errorf("create export data dir: %w", err))
	}

	shardPath := filepath.Join(dataDir, "0000.json")
	f, err := os.Create(shardPath)
	if err != nil {
		rows.Close()
		return s.failExport(desc, fmt.Errorf("create export shard: %w", err))
	}
	w := bufio.NewWriter(f)

	now := time.Now().Unix()
	var itemCount, billedBytes int64
	for rows.Next() {
		var doc []byte
		var expiresAt sql.NullInt64
		if err := rows.Scan(&doc, &expiresAt); err != nil {
			rows.Close()
			f.Close()
			return s.failExport(desc, err)
		}
		if expiresAt.Valid && expiresAt.Int64 <= now {
			continue // lazily-expired item, not yet swept; excluded from the snapshot
		}
		line := append([]byte(`{"Item":`), append(doc, []byte("}\n")...)...)
		if _, err := w.Write(line); err != nil {
			rows.Close()
			f.Close()
			return s.failExport(desc, err)
		}
		itemCount++
		billedBytes += int64(len(doc))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		f.Close()
		return s.failExport(desc, err)
	}
	rows.Close()
	if err := w.Flush(); err != nil {
		f.Close()
		return s.failExport(desc, err)
	}
	f.Close()

	desc.ItemCount = itemCount
	desc.BilledSizeBytes = billedBytes
	desc.Status = ExportCompleted
	desc.EndTime = time.Now().Unix()

	manifest := exportManifest{
		ExportID:        desc.ExportID,
		TableName:       desc.TableName,
		Status:          string(desc.Status),
		ItemCount:       desc.ItemCount,
		BilledSizeBytes: desc.BilledSizeBytes,
		ExportFormat:    desc.ExportFormat,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return s.failExport(desc, err)
	}
	if err := os.WriteFile(filepath.Join(desc.OutputDir, "manifest-summary.json"), manifestBytes, 0o644); err != nil {
		return s.failExport(desc, err)
	}

	if err := s.updateExportRow(desc); err != nil {
		s.unlock()
		return nil, err
	}
	s.unlock()
	s.log.Info("export completed", "table", tableName, "exportId", exportID, "items", itemCount)
	return desc, nil
}

// failExport marks the export FAILED and persists it; called with s.mu
// already held, and releases it before returning (mirrors the early-unlock
// pattern its callers already use at each error exit).
func (s *Store) failExport(desc *ExportDescriptor, cause error) (*ExportDescriptor, error) {
	desc.Status = ExportFailed
	desc.EndTime = time.Now().Unix()
	desc.FailureMessage = cause.Error()
	_ = s.updateExportRow(desc)
	s.unlock()
	s.log.Error("export failed", "table", desc.TableName, "exportId", desc.ExportID, "error", cause)
	return desc, ddberr.Internal("export %s: %v", desc.ExportID, cause)
}

// DescribeExport looks up a previously issued export descriptor.
func (s *Store) DescribeExport(exportID string) (*ExportDescriptor, error) {
	s.lock()
	defer s.unlock()
	return s.loadExportRow(exportID)
}

func (s *Store) insertExportRow(d *ExportDescriptor) error {
	_, err := s.db.Exec(`INSERT INTO ddb_exports (export_id, table_name, status, start_time, end_time, item_count, billed_size_bytes, export_format, output_dir, failure_message)
		VALUES (?, ?, ?, ?, 0, 0, 0, ?, ?, '')`,
		d.ExportID, d.TableName, string(d.Status), d.StartTime, d.ExportFormat, d.OutputDir)
	return err
}

func (s *Store) updateExportRow(d *ExportDescriptor) error {
	_, err := s.db.Exec(`UPDATE ddb_exports SET status = ?, end_time = ?, item_count = ?, billed_size_bytes = ?, failure_message = ? WHERE export_id = ?`,
		string(d.Status), d.EndTime, d.ItemCount, d.BilledSizeBytes, d.FailureMessage, d.ExportID)
	return err
}

func (s *Store) loadExportRow(exportID string) (*ExportDescriptor, error) {
	d := &ExportDescriptor{}
	var status string
	err := s.db.QueryRow(`SELECT export_id, table_name, status, start_time, end_time, item_count, billed_size_bytes, export_format, output_dir, failure_message FROM ddb_exports WHERE export_id = ?`, exportID).
		Scan(&d.ExportID, &d.TableName, &status, &d.StartTime, &d.EndTime, &d.ItemCount, &d.BilledSizeBytes, &d.ExportFormat, &d.OutputDir, &d.FailureMessage)
	if err != nil {
		return nil, ddberr.NotFound("export %q not found", exportID)
	}
	d.Status = ExportStatus(status)
	return d, nil
}
