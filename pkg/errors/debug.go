package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorDump is the log-only view of an error. It never reaches clients.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Step       any    `json:"step,omitempty"`

	Chain []string `json:"chain,omitempty"`

	// Sentinel names a gorm sentinel found in the chain, e.g. record_not_found.
	Sentinel string `json:"sentinel,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

var gormSentinels = []struct {
	err  error
	name string
}{
	{gorm.ErrRecordNotFound, "record_not_found"},
	{gorm.ErrDuplicatedKey, "duplicated_key"},
	{gorm.ErrForeignKeyViolated, "foreign_key_violated"},
	{gorm.ErrCheckConstraintViolated, "check_constraint_violated"},
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
		if dm, ok := te.Details().(map[string]any); ok {
			d.Step = dm["step"]
		}
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	for _, s := range gormSentinels {
		if errors.Is(err, s.err) {
			d.Sentinel = s.name
			break
		}
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}

	return d
}

// Fields flattens the dump into log fields, leaving out empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
		fields["retryable"] = d.Retryable
	}
	if d.Step != nil {
		fields["step"] = d.Step
	}
	optional := map[string]string{
		"error_sentinel": d.Sentinel,
		"pg_code":        d.PGCode,
		"pg_constraint":  d.PGConstraint,
		"pg_table":       d.PGTable,
		"pg_column":      d.PGColumn,
		"pg_detail":      d.PGDetail,
		"pg_message":     d.PGMessage,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}
