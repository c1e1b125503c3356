package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestCodePolicies(t *testing.T) {
	tests := []struct {
		code        Code
		status      int
		public      string
		showMessage bool
		showDetails bool
	}{
		{CodeValidation, http.StatusBadRequest, "validation failed", true, true},
		{CodeUnauthorized, http.StatusUnauthorized, "cart session invalid", true, false},
		{CodeNotFound, http.StatusNotFound, "resource not found", true, false},
		{CodeConflict, http.StatusConflict, "conflict detected", true, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, "state transition disallowed", true, true},
		{CodePaymentDeclined, http.StatusPaymentRequired, "payment was declined", true, true},
		{CodeInternal, http.StatusInternalServerError, "internal server error", false, false},
		{CodeDependency, http.StatusServiceUnavailable, "dependency unavailable", false, true},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, got)
		}
		if got := tt.code.PublicMessage(); got != tt.public {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.public, got)
		}
		if tt.code.ShowsMessage() != tt.showMessage || tt.code.ShowsDetails() != tt.showDetails {
			t.Fatalf("code %s exposure mismatch", tt.code)
		}
	}
}

func TestUnknownCodeBehavesAsInternal(t *testing.T) {
	code := Code("SOMETHING_UNKNOWN")
	if code.HTTPStatus() != http.StatusInternalServerError || code.ShowsMessage() {
		t.Fatalf("unknown code should render as internal, got %d", code.HTTPStatus())
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing delivery address")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing delivery address" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "deliveryAddress"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("card_declined")
	wrapped := Wrap(CodePaymentDeclined, cause, "confirm payment")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !strings.Contains(wrapped.Error(), "card_declined") {
		t.Fatalf("expected cause in error string, got %q", wrapped.Error())
	}
}

func TestAsAndIsCodeWalkTheChain(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeNotFound, "payment attempt"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected IsCode to match wrapped code")
	}
	if IsCode(err, CodeConflict) {
		t.Fatalf("unexpected code match")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_orders_payment_reference",
		TableName:      "orders",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeConflict, pgErr, "insert order")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.Postgres == nil || dump.Postgres.SQLState != "23505" || dump.Postgres.Constraint != "ux_orders_payment_reference" || dump.Postgres.Table != "orders" {
		t.Fatalf("unexpected pg fields %+v", dump.Postgres)
	}
	fields := dump.Fields()
	if fields["pg_constraint"] != "ux_orders_payment_reference" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg fields should be omitted: %v", fields)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
}

func TestPostgresReadsLibPQ(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23503", Constraint: "fk_order_items_order", Table: "order_items"})
	pg, ok := Postgres(err)
	if !ok || pg.SQLState != "23503" || pg.Constraint != "fk_order_items_order" {
		t.Fatalf("unexpected detail %+v ok=%v", pg, ok)
	}
	if _, ok := Postgres(New(CodeInternal, "boom")); ok {
		t.Fatal("plain errors carry no postgres detail")
	}
	if dump := Dump(New(CodeInternal, "boom")); dump.Postgres != nil {
		t.Fatal("expected nil postgres detail")
	}
}
