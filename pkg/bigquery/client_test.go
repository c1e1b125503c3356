package bigquery

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/gcp"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "sunrise"}, nil); !errors.Is(err, gcp.ErrProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "sunrise"}, config.BigQueryConfig{Dataset: " "}, nil); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if got := c.TableRef("order_facts"); got != "" {
		t.Fatalf("expected empty ref for nil client, got %q", got)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.EnsureTable(context.Background(), TableSpec{Name: "order_facts"}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestTableMetadata(t *testing.T) {
	spec := TableSpec{
		Name:           "order_facts",
		Schema:         bigquery.Schema{{Name: "occurred_at", Type: bigquery.TimestampFieldType}},
		PartitionField: " occurred_at ",
		Clustering:     []string{"delivery_date", "payment_provider"},
	}
	md := tableMetadata(spec)
	if md.TimePartitioning == nil || md.TimePartitioning.Field != "occurred_at" || md.TimePartitioning.Type != bigquery.DayPartitioningType {
		t.Fatalf("unexpected partitioning %+v", md.TimePartitioning)
	}
	if md.Clustering == nil || len(md.Clustering.Fields) != 2 {
		t.Fatalf("unexpected clustering %+v", md.Clustering)
	}
	spec.Clustering[0] = "mutated"
	if md.Clustering.Fields[0] != "delivery_date" {
		t.Fatal("clustering fields must be copied")
	}

	if md := tableMetadata(TableSpec{Name: "t", Schema: spec.Schema}); md.Clustering != nil {
		t.Fatalf("expected no clustering, got %+v", md.Clustering)
	}
}

func TestTrackDeduplicates(t *testing.T) {
	c := &Client{}
	c.track("order_facts")
	c.track("order_facts")
	c.track("daily_sales")
	if got := c.trackedTables(); len(got) != 2 {
		t.Fatalf("expected 2 tracked tables, got %v", got)
	}
}
