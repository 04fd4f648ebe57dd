package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuentas-dev/cuentas/internal/importlog"
	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/workbook"
)

// DefaultMaxUploadBytes caps an uploaded statement at 10 MB.
const DefaultMaxUploadBytes = 10 << 20

// Store is the persistence the importer needs. It does not enforce key
// uniqueness; the importer does.
type Store interface {
	ExistsByKey(ctx context.Context, key model.Key) (bool, error)
	InsertTransaction(ctx context.Context, tx model.Transaction) (int64, error)
}

// Outcome reports what one ingestion actually did. On a fatal storage error
// it still counts the rows committed before the failure.
type Outcome struct {
	BatchID      string
	Sheet        string
	HeaderRow    int
	Variant      SchemaVariant
	Inserted     int
	Duplicates   int
	Errors       int
	ErrorDetails []RowError
}

// Messages returns the row failures as text, in row order.
func (o Outcome) Messages() []string {
	msgs := make([]string, len(o.ErrorDetails))
	for i, e := range o.ErrorDetails {
		msgs[i] = e.Error()
	}
	return msgs
}

// MarshalJSON renders the counters and the per-row diagnostics.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BatchID      string   `json:"batch_id,omitempty"`
		Variant      string   `json:"variant,omitempty"`
		Inserted     int      `json:"inserted"`
		Duplicates   int      `json:"duplicates"`
		Errors       int      `json:"errors"`
		ErrorDetails []string `json:"error_details"`
	}{
		BatchID:      o.BatchID,
		Variant:      o.variantName(),
		Inserted:     o.Inserted,
		Duplicates:   o.Duplicates,
		Errors:       o.Errors,
		ErrorDetails: o.Messages(),
	})
}

func (o Outcome) variantName() string {
	if o.Sheet == "" {
		return ""
	}
	return o.Variant.String()
}

// Options configures an Importer.
type Options struct {
	MaxUploadBytes int64
	Logger         zerolog.Logger
	// AuditDir, when set, receives one import-log row per batch.
	AuditDir string
}

// Importer runs the ingestion pipeline against a Store.
type Importer struct {
	store    Store
	maxBytes int64
	log      zerolog.Logger
	auditDir string
}

// New creates an Importer.
func New(store Store, opts Options) *Importer {
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Importer{store: store, maxBytes: maxBytes, log: opts.Logger, auditDir: opts.AuditDir}
}

// MaxUploadBytes returns the configured payload cap.
func (im *Importer) MaxUploadBytes() int64 { return im.maxBytes }

// Validate rejects a payload before parsing: wrong extension, empty, or over
// the size cap.
func (im *Importer) Validate(name string, size int64) error {
	if !workbook.SupportedExtension(name) {
		return ErrUnsupportedExtension
	}
	if size == 0 {
		return ErrEmptyPayload
	}
	if size > im.maxBytes {
		return fmt.Errorf("%w (%d > %d bytes)", ErrPayloadTooLarge, size, im.maxBytes)
	}
	return nil
}

// IngestFile validates, parses, and ingests one uploaded spreadsheet.
func (im *Importer) IngestFile(ctx context.Context, name string, data []byte) (Outcome, error) {
	if err := im.Validate(name, int64(len(data))); err != nil {
		return Outcome{}, err
	}
	wb, err := workbook.Open(name, data)
	if err != nil {
		return Outcome{}, err
	}

	out, err := im.Ingest(ctx, wb)
	im.audit(name, out, err)
	return out, err
}

// Ingest walks the detected sheet row by row: normalize, check the exact
// key, insert when absent. Batch-level detection errors abort before any
// row; row failures are recorded and skipped; storage errors stop the batch
// with earlier inserts left committed.
func (im *Importer) Ingest(ctx context.Context, wb *workbook.Workbook) (Outcome, error) {
	out := Outcome{BatchID: uuid.NewString()}

	det, err := Detect(wb)
	if err != nil {
		return out, err
	}
	mapping, err := MapSchema(det.Header)
	if err != nil {
		return out, err
	}
	out.Sheet = det.Sheet.Name
	out.HeaderRow = det.HeaderRow
	out.Variant = mapping.Variant

	log := im.log.With().
		Str("batch_id", out.BatchID).
		Str("sheet", out.Sheet).
		Stringer("variant", mapping.Variant).
		Logger()

	for r := det.HeaderRow + 1; r < len(det.Sheet.Rows); r++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if workbook.IsRowEmpty(det.Sheet.Rows[r]) {
			continue
		}

		tx, err := mapping.Normalize(det.Sheet, r)
		if err != nil {
			rowErr, ok := err.(RowError)
			if !ok {
				return out, err
			}
			out.Errors++
			out.ErrorDetails = append(out.ErrorDetails, rowErr)
			log.Debug().Int("row", rowErr.RowNumber()).Err(err).Msg("row rejected")
			continue
		}

		exists, err := im.store.ExistsByKey(ctx, tx.Key())
		if err != nil {
			return out, fmt.Errorf("checking row %d: %w", r+1, err)
		}
		if exists {
			out.Duplicates++
			continue
		}
		if _, err := im.store.InsertTransaction(ctx, tx); err != nil {
			return out, fmt.Errorf("inserting row %d: %w", r+1, err)
		}
		out.Inserted++
	}

	log.Info().
		Int("inserted", out.Inserted).
		Int("duplicates", out.Duplicates).
		Int("errors", out.Errors).
		Msg("statement ingested")
	return out, nil
}

func (im *Importer) audit(name string, out Outcome, ingestErr error) {
	if im.auditDir == "" {
		return
	}
	entry := importlog.Entry{
		Timestamp:  time.Now().UTC(),
		BatchID:    out.BatchID,
		File:       filepath.Base(name),
		Variant:    out.variantName(),
		Inserted:   out.Inserted,
		Duplicates: out.Duplicates,
		Errors:     out.Errors,
	}
	if ingestErr != nil {
		entry.Failure = ingestErr.Error()
	}
	if err := importlog.Append(im.auditDir, []importlog.Entry{entry}); err != nil {
		im.log.Warn().Err(err).Msg("failed to write import log")
	}
}

// FileInfo describes a statement file waiting in an import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// processedDir is the subdirectory ingested files are moved to.
const processedDir = "processed"

// Scan returns the .xls/.xlsx files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !workbook.SupportedExtension(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
