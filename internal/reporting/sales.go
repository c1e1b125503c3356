package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"google.golang.org/api/iterator"
)

const dailySalesSQL = `
SELECT
  delivery_date AS day,
  COUNT(DISTINCT order_id) AS orders,
  SUM(item_count) AS items,
  SUM(subtotal_cents) AS subtotal_cents,
  SUM(tip_cents) AS tip_cents,
  SUM(total_cents) AS total_cents
FROM %s
WHERE delivery_date BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

// DailySales aggregates paid orders by delivery date.
type DailySales struct {
	Day           string `bigquery:"day" json:"day"`
	Orders        int64  `bigquery:"orders" json:"orders"`
	Items         int64  `bigquery:"items" json:"items"`
	SubtotalCents int64  `bigquery:"subtotal_cents" json:"subtotalCents"`
	TipCents      int64  `bigquery:"tip_cents" json:"tipCents"`
	TotalCents    int64  `bigquery:"total_cents" json:"totalCents"`
}

type queryRunner interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
	TableRef(table string) string
}

// SalesReport reads aggregates back out of the order facts table.
type SalesReport struct {
	client   queryRunner
	tableRef string
}

// NewSalesReport builds a report over table.
func NewSalesReport(client queryRunner, table string) (*SalesReport, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("order facts table is required")
	}
	ref := client.TableRef(table)
	if ref == "" {
		return nil, errors.New("bigquery client not initialized")
	}
	return &SalesReport{client: client, tableRef: ref}, nil
}

// Daily returns one row per delivery date in [start, end].
func (r *SalesReport) Daily(ctx context.Context, start, end time.Time) ([]DailySales, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	iter, err := r.client.Query(ctx, r.dailySQL(), []cloudbigquery.QueryParameter{
		{Name: "start", Value: start.Format(time.DateOnly)},
		{Name: "end", Value: end.Format(time.DateOnly)},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query daily sales")
	}

	var out []DailySales
	for {
		var row DailySales
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read daily sales row")
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *SalesReport) dailySQL() string {
	return fmt.Sprintf(dailySalesSQL, r.tableRef)
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if end.Before(start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}
