package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/gcp"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errSchemaRequired       = errors.New("bigquery table schema is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the service owns and may create on boot.
type TableSpec struct {
	Name   string
	Schema bigquery.Schema
	// PartitionField must be a DATE or TIMESTAMP column. Empty means ingestion-time partitioning.
	PartitionField string
	Clustering     []string
}

// Client wraps a dataset handle. Tables passed to EnsureTable are re-checked by Ping.
type Client struct {
	bq      *bigquery.Client
	project string
	dataset *bigquery.Dataset

	mu     sync.RWMutex
	tables []string
}

// NewClient connects to BigQuery and fails fast when the dataset is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	c := &Client{bq: bq, project: project, dataset: bq.Dataset(datasetID)}
	if err := c.checkDataset(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return c, nil
}

// EnsureTable creates the table when it does not exist yet.
// An existing table is left untouched, schema drift included.
func (c *Client) EnsureTable(ctx context.Context, spec TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errTableNameRequired
	}

	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	table := c.dataset.Table(name)
	_, err := table.Metadata(ctx)
	switch {
	case err == nil:
	case gcp.IsNotFound(err):
		if len(spec.Schema) == 0 {
			return fmt.Errorf("table %q does not exist: %w", name, errSchemaRequired)
		}
		if err := table.Create(ctx, tableMetadata(spec)); err != nil && !gcp.IsAlreadyExists(err) {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
	default:
		return fmt.Errorf("checking table %q: %w", name, err)
	}

	c.track(name)
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	md := &bigquery.TableMetadata{
		Schema:           spec.Schema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: strings.TrimSpace(spec.PartitionField)},
	}
	if len(spec.Clustering) > 0 {
		md.Clustering = &bigquery.Clustering{Fields: append([]string(nil), spec.Clustering...)}
	}
	return md
}

func (c *Client) track(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.tables {
		if existing == name {
			return
		}
	}
	c.tables = append(c.tables, name)
}

func (c *Client) trackedTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tables...)
}

func (c *Client) checkDataset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := c.dataset.Metadata(ctx); err != nil {
		if gcp.IsNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

// Ping checks the dataset and every table registered through EnsureTable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	if err := c.checkDataset(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	for _, name := range c.trackedTables() {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return fmt.Errorf("checking table %q: %w", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into a table of the configured dataset.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// TableRef returns the backquoted `project.dataset.table` reference for SQL.
func (c *Client) TableRef(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return "`" + strings.Join([]string{c.project, c.dataset.DatasetID, strings.TrimSpace(table)}, ".") + "`"
}

// Query runs parameterized SQL and returns the row iterator.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.bq == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.bq.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
