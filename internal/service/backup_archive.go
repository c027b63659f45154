package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	_ "embed"

	"github.com/gabriel-vasile/mimetype"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/school-points-api/internal/models"
)

// BackupArchiver stores a copy of a snapshot outside the database.
type BackupArchiver interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

const snapshotSchemaURL = "mem://schemas/backup_snapshot.schema.json"

//go:embed schemas/backup_snapshot.schema.json
var snapshotSchemaSource string

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     *jsonschema.Schema
	snapshotSchemaErr  error
)

func compiledSnapshotSchema() (*jsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(snapshotSchemaURL, strings.NewReader(snapshotSchemaSource)); err != nil {
			snapshotSchemaErr = err
			return
		}
		snapshotSchema, snapshotSchemaErr = compiler.Compile(snapshotSchemaURL)
	})
	return snapshotSchema, snapshotSchemaErr
}

// DecodeSnapshotFile inspects an uploaded backup file and decodes it.
func DecodeSnapshotFile(payload []byte) (models.BackupSnapshot, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return models.BackupSnapshot{}, ErrInvalidBackup
	}

	mime := mimetype.Detect(payload)
	if !mime.Is("application/json") && !strings.HasPrefix(mime.String(), "text/plain") {
		return models.BackupSnapshot{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidBackup, mime.String())
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	schema, err := compiledSnapshotSchema()
	if err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("compile snapshot schema: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	var snapshot models.BackupSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return snapshot, nil
}
