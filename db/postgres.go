// Package db provides a GORM-backed audit trail for top-level ingestion
// workflow runs (scan/hashplan/process), distinct from taskrt's own
// Postgres-backed run-state store: taskrt persists the operational state a
// running workflow needs to resume after a restart, while IngestRunLog is a
// durable, query-friendly history of what ran, when, and with what outcome
// — the kind of record an operator reaches for after the fact, not the kind
// a workflow reads mid-execution.
package db

import (
	"encoding/json"
	"time"

	eve "github.com/liquidinvestigations/hoover3-sub000/common"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// IngestRunLog is one top-level workflow invocation's audit record: which
// collection/datasource it ran against, which workflow, how it ended, and
// how long it took. Error is empty on success.
type IngestRunLog struct {
	gorm.Model
	Collection   string
	Datasource   string
	WorkflowName string
	WorkflowID   string
	Status       string
	DurationMS   int64
	Error        string `gorm:"type:text"`
}

// connect opens a GORM connection to pgUrl with production-sized pool
// limits, matching the teacher's PGInfo/PGMigrations connection setup.
func connect(pgUrl string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(pgUrl), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate creates or updates the ingest_run_logs table for the current
// IngestRunLog schema.
func Migrate(pgUrl string) error {
	db, err := connect(pgUrl)
	if err != nil {
		return err
	}
	return db.AutoMigrate(&IngestRunLog{})
}

// RecordRun inserts one IngestRunLog entry, a queryable run history kept
// apart from taskrt's internal run-state table. No pipeline in this module
// calls it; entries are written only by callers that invoke it directly.
func RecordRun(pgUrl string, entry IngestRunLog) error {
	db, err := connect(pgUrl)
	if err != nil {
		return err
	}
	return db.Create(&entry).Error
}

// ListRuns returns every IngestRunLog entry for collection, most recent
// first.
func ListRuns(pgUrl, collection string) ([]IngestRunLog, error) {
	db, err := connect(pgUrl)
	if err != nil {
		return nil, err
	}
	var logs []IngestRunLog
	err = db.Where("collection = ?", collection).Order("created_at desc").Find(&logs).Error
	return logs, err
}

// ListRunsJSON is ListRuns serialized to JSON.
func ListRunsJSON(pgUrl, collection string) ([]byte, error) {
	logs, err := ListRuns(pgUrl, collection)
	if err != nil {
		eve.Logger.Error(err)
		return nil, err
	}
	return json.Marshal(logs)
}
