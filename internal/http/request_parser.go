package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errMalformedBody marks a body that is not the expected JSON shape.
var errMalformedBody = errors.New("malformed request body")

type createTransactionRequest struct {
	ID       *int64           `json:"id" validate:"omitempty,gt=0"`
	Title    string           `json:"title" validate:"required,max=200"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Category string           `json:"category" validate:"required,max=100"`
	WalletID *int64           `json:"walletId" validate:"omitempty,gt=0"`
	Date     string           `json:"date"`
}

func (r createTransactionRequest) toCore() (core.NewTransaction, error) {
	in := core.NewTransaction{
		Title:    r.Title,
		Amount:   *r.Amount,
		Category: r.Category,
		WalletID: r.WalletID,
	}
	if r.ID != nil {
		in.ID = *r.ID
	}
	if strings.TrimSpace(r.Date) != "" {
		date, err := parseDate(r.Date)
		if err != nil {
			return core.NewTransaction{}, core.NewValidationError("date", "expected RFC3339 or YYYY-MM-DD")
		}
		in.Date = date
	}
	return in, nil
}

type updateWalletRequest struct {
	ID      int64            `json:"id" validate:"required,gt=0"`
	Name    *string          `json:"name" validate:"omitempty,max=200"`
	Balance *decimal.Decimal `json:"balance"`
}

func (r updateWalletRequest) toCore() core.WalletUpdate {
	return core.WalletUpdate{ID: r.ID, Name: r.Name, Balance: r.Balance}
}

// decodeJSON reads exactly one JSON object into dst and validates it.
// Syntax and shape problems wrap errMalformedBody; constraint violations
// are *core.ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", errMalformedBody)
	}

	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return core.NewValidationError(fe.Field(), "is required")
	case "max":
		return core.NewValidationError(fe.Field(), "too long (max "+fe.Param()+" characters)")
	case "gt":
		return core.NewValidationError(fe.Field(), "must be positive")
	default:
		return core.NewValidationError(fe.Field(), "failed "+fe.Tag()+" check")
	}
}

// parseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

// parseID parses a positive integer identifier.
func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(field, "must be a positive integer")
	}
	return id, nil
}

// parseOptionalID returns nil when s is empty.
func parseOptionalID(field, s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := parseID(field, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseStatsFilter reads from and to as inclusive calendar days.
func parseStatsFilter(r *http.Request) (core.StatsFilter, error) {
	var f core.StatsFilter
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		from, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, core.NewValidationError("from", "expected YYYY-MM-DD")
		}
		f.From = from
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, core.NewValidationError("to", "expected YYYY-MM-DD")
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return f, core.NewValidationError("to", "must not be before from")
	}
	return f, nil
}

// RequireMethod returns an error response when r.Method is not allowed.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
