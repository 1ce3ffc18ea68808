package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/middleware/identity"
	"finanzas/internal/report"
	"finanzas/internal/services"
)

const maxBodyBytes = 1 << 20

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(core.NewValidationError("id", fmt.Sprintf("invalid id %q", raw)))
	}
	return id, nil
}

// callerID returns the user the identity middleware stored.
func callerID(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

// queryParser accumulates parse failures across several query parameters.
type queryParser struct {
	values url.Values
	errs   core.ValidationError
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

// Int returns the named integer parameter, or 0 when absent.
func (p *queryParser) Int(name string) int {
	v := strings.TrimSpace(p.values.Get(name))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs.Add(name, fmt.Sprintf("must be an integer, got %q", v))
		return 0
	}
	return n
}

func (p *queryParser) Int64(name string) int64 {
	v := strings.TrimSpace(p.values.Get(name))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs.Add(name, fmt.Sprintf("must be an integer, got %q", v))
		return 0
	}
	return n
}

// Date returns the named YYYY-MM-DD parameter.
func (p *queryParser) Date(name string) *core.Date {
	v := strings.TrimSpace(p.values.Get(name))
	if v == "" {
		return nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.errs.Add(name, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

// Err returns the accumulated failures as a bad request.
func (p *queryParser) Err() error {
	if err := p.errs.OrNil(); err != nil {
		return badRequest(err)
	}
	return nil
}

// ParseReportParams reads the report filters. Parameters that do not apply
// to the chosen period are parsed but ignored downstream. badgeId defaults
// to the caller's currency.
func ParseReportParams(query url.Values, caller identity.Identity) (report.Params, error) {
	q := newQueryParser(query)
	params := report.Params{
		UserID:     caller.UserID,
		BadgeID:    q.Int64("badgeId"),
		Date:       q.Date("date"),
		WeekNumber: q.Int("weekNumber"),
		Month:      q.Int("month"),
		Year:       q.Int("year"),
	}
	if params.BadgeID == 0 {
		params.BadgeID = caller.BadgeID
	}
	return params, q.Err()
}

// ParseMovementFilter reads the movement listing filters.
func ParseMovementFilter(query url.Values) (services.MovementFilter, error) {
	q := newQueryParser(query)
	f := services.MovementFilter{
		AccountID:  q.Int64("accountId"),
		CategoryID: q.Int64("categoryId"),
	}
	if d := q.Date("from"); d != nil {
		f.From = *d
	}
	if d := q.Date("to"); d != nil {
		f.To = *d
	}
	return f, q.Err()
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest(fmt.Errorf("request body exceeds %d bytes", maxBodyBytes))
		}
		return nil, badRequest(fmt.Errorf("read request body: %w", err))
	}
	return body, nil
}

// decodeInto decodes a JSON object onto v. Fields missing from the body keep
// the value v already holds, which is how updates stay partial.
func decodeInto(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest(errors.New("request body is empty"))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("malformed JSON: %w", err))
	}
	if dec.More() {
		return badRequest(errors.New("malformed JSON: trailing data after object"))
	}
	return nil
}
