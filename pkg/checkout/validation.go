package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// processor metadata values are capped at 500 characters
	maxMetadataValue = 500
)

var phoneRe = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	return v
}

// DeliveryDetails are the purchaser and delivery fields collected at checkout.
type DeliveryDetails struct {
	PurchaserEmail  string `json:"purchaserEmail" validate:"required,email,max=254"`
	PurchaserPhone  string `json:"purchaserPhone" validate:"required,phone"`
	RecipientPhone  string `json:"recipientPhone,omitempty" validate:"omitempty,phone"`
	DeliveryDate    string `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	DeliveryTime    string `json:"deliveryTime" validate:"required,datetime=15:04"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required,min=5,max=500"`
	CustomNote      string `json:"customNote,omitempty" validate:"max=1000"`
}

// Normalize trims every field and lower-cases the email.
func (d DeliveryDetails) Normalize() DeliveryDetails {
	return DeliveryDetails{
		PurchaserEmail:  strings.ToLower(strings.TrimSpace(d.PurchaserEmail)),
		PurchaserPhone:  strings.TrimSpace(d.PurchaserPhone),
		RecipientPhone:  strings.TrimSpace(d.RecipientPhone),
		DeliveryDate:    strings.TrimSpace(d.DeliveryDate),
		DeliveryTime:    strings.TrimSpace(d.DeliveryTime),
		DeliveryAddress: strings.TrimSpace(d.DeliveryAddress),
		CustomNote:      strings.TrimSpace(d.CustomNote),
	}
}

// Metadata is attached to the payment intent so the processor dashboard shows the delivery.
func (d DeliveryDetails) Metadata() map[string]string {
	meta := map[string]string{
		"deliveryDate":    d.DeliveryDate,
		"deliveryTime":    d.DeliveryTime,
		"deliveryAddress": truncate(d.DeliveryAddress),
		"purchaserEmail":  d.PurchaserEmail,
		"purchaserPhone":  d.PurchaserPhone,
	}
	if d.RecipientPhone != "" {
		meta["recipientPhone"] = d.RecipientPhone
	}
	if d.CustomNote != "" {
		meta["customNote"] = truncate(d.CustomNote)
	}
	return meta
}

// ValidateDeliveryDetails checks the fields and that the delivery date is at
// least minLeadDays after today in loc. It returns the parsed delivery date.
func ValidateDeliveryDetails(d DeliveryDetails, now time.Time, loc *time.Location, minLeadDays int) (time.Time, error) {
	if err := validate.Struct(d); err != nil {
		return time.Time{}, formatValidationErrors(err)
	}
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DateLayout, d.DeliveryDate, loc)
	if err != nil {
		return time.Time{}, fieldError("deliveryDate", "must be a date (YYYY-MM-DD)")
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	earliest := today.AddDate(0, 0, minLeadDays)
	if date.Before(earliest) {
		return time.Time{}, fieldError("deliveryDate", fmt.Sprintf("must be on or after %s", earliest.Format(DateLayout)))
	}
	return date, nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "datetime":
		return fmt.Sprintf("must match %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

func fieldError(field, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: message})
}

func truncate(v string) string {
	if len(v) <= maxMetadataValue {
		return v
	}
	return v[:maxMetadataValue]
}
