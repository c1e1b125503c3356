package reporting

import (
	cbigquery "cloud.google.com/go/bigquery"
	"github.com/angelmondragon/sunrise-backend/pkg/bigquery"
)

// OrderFactsTable describes the order facts table, partitioned by event time
// and clustered for the daily sales query.
func OrderFactsTable(name string) (bigquery.TableSpec, error) {
	schema, err := cbigquery.InferSchema(OrderFactRow{})
	if err != nil {
		return bigquery.TableSpec{}, err
	}
	return bigquery.TableSpec{
		Name:           name,
		Schema:         schema,
		PartitionField: "occurred_at",
		Clustering:     []string{"delivery_date", "payment_provider"},
	}, nil
}
