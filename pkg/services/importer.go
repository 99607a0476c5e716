package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

const (
	importBatchSize = 100
	importWorkers   = 4
)

// ImportReport summarizes one bulk import run.
type ImportReport struct {
	Rows     int `json:"rows"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
	Batches  int `json:"batches"`
}

// ImportService streams CSV files into a document datasource. Rows are
// typed per cell (boolean, then number, then string), grouped into batches,
// and written by parallel unordered bulk writes. A failed batch is counted
// and skipped; the import keeps going.
type ImportService struct {
	datasources *DatasourceService
	cache       *datasource.ConnectionCache
	logger      *zap.Logger
}

func NewImportService(datasources *DatasourceService, cache *datasource.ConnectionCache, logger *zap.Logger) *ImportService {
	return &ImportService{datasources: datasources, cache: cache, logger: logger}
}

// ImportCSV reads the CSV from r, using the first row as field names, and
// inserts the remaining rows into the collection. Insertion order across
// batches is not guaranteed.
func (s *ImportService) ImportCSV(ctx context.Context, datasourceID uuid.UUID, database, collection string, r io.Reader) (*ImportReport, error) {
	record, err := s.datasources.Get(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	if record.Provider != models.ProviderDocument {
		return nil, fmt.Errorf("csv import requires a document datasource, got %q", record.Provider)
	}

	handle := s.cache.GetClient(ctx, record)
	if datasource.IsUnavailable(handle) {
		return nil, apperrors.ErrDatasourceUnavailable
	}
	client, err := datasource.GetMongoClient(handle)
	if err != nil {
		return nil, err
	}

	coll := client.Database(effectiveDatabase(record, database)).Collection(collection)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var (
		inserted atomic.Int64
		failed   atomic.Int64
		batches  atomic.Int64
		wg       sync.WaitGroup
	)
	work := make(chan []any, importWorkers)
	for i := 0; i < importWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range work {
				batches.Add(1)
				writes := make([]mongo.WriteModel, len(batch))
				for j, doc := range batch {
					writes[j] = mongo.NewInsertOneModel().SetDocument(doc)
				}
				res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
				if err != nil {
					// Partial bulk errors still report the inserted count.
					if res != nil {
						inserted.Add(res.InsertedCount)
						failed.Add(int64(len(batch)) - res.InsertedCount)
					} else {
						failed.Add(int64(len(batch)))
					}
					s.logger.Warn("csv import batch failed",
						zap.String("collection", collection),
						zap.Error(err))
					continue
				}
				inserted.Add(res.InsertedCount)
			}
		}()
	}

	rows := 0
	batch := make([]any, 0, importBatchSize)
	var readErr error
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("read csv row %d: %w", rows+2, err)
			break
		}
		rows++
		batch = append(batch, rowToDocument(header, row))
		if len(batch) >= importBatchSize {
			work <- batch
			batch = make([]any, 0, importBatchSize)
		}
	}
	if len(batch) > 0 {
		work <- batch
	}
	close(work)
	wg.Wait()

	report := &ImportReport{
		Rows:     rows,
		Inserted: int(inserted.Load()),
		Failed:   int(failed.Load()),
		Batches:  int(batches.Load()),
	}
	return report, readErr
}

// rowToDocument types each cell the same way body-model inference does:
// boolean first, then number, then string.
func rowToDocument(header, row []string) map[string]any {
	doc := make(map[string]any, len(header))
	for i, name := range header {
		if i >= len(row) {
			break
		}
		doc[name] = convertCell(row[i])
	}
	return doc
}

func convertCell(cell string) any {
	if b, err := strconv.ParseBool(cell); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
