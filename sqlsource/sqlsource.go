// Package sqlsource is a DataSource over database/sql. The sqlite (modernc.org/sqlite) and pgx
// (github.com/jackc/pgx/v5/stdlib) drivers are registered.
package sqlsource

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/query"
	"github.com/squareup/lazyrows/source"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

type Source struct {
	db           *sql.DB
	driver       string
	countBuilder query.CountQueryBuilder
	notifier     *source.Notifier
}

var _ source.DataSource = (*Source)(nil)

type Option func(s *Source)

// WithCountQueryBuilder replaces the default COUNT wrapper. Column names are then read from a zero row
// query rather than derived from the projection.
func WithCountQueryBuilder(builder query.CountQueryBuilder) Option {
	return func(s *Source) {
		s.countBuilder = builder
	}
}

func Open(driver string, dsn string, opts ...Option) (*Source, error) {
	if driver != DriverSQLite && driver != DriverPgx {
		return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("unsupported SQL driver %q", driver))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if driver == DriverSQLite {
		// in-memory sqlite databases exist per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		common.InvokeCloser(db)
		return nil, errors.WithStack(err)
	}
	return New(db, driver, opts...), nil
}

func New(db *sql.DB, driver string, opts ...Option) *Source {
	s := &Source{db: db, driver: driver, notifier: source.NewNotifier()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) DB() *sql.DB {
	return s.db
}

// Exec runs a statement and tells live count results that the data changed.
func (s *Source) Exec(stmt string, args ...interface{}) (sql.Result, error) {
	res, err := s.db.Exec(s.rebind(stmt), args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s.NotifyChanged()
	return res, nil
}

// NotifyChanged invalidates every live count result. Call it after writing through another connection.
func (s *Source) NotifyChanged() {
	s.notifier.Notify()
}

func (s *Source) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *Source) Count(spec *query.Spec, limit *query.Limit) (source.CountResult, error) {
	stmt := s.countQuery(spec, limit)
	args := spec.SelectionArgs()
	return source.NewCounter(func() (int, bool, error) {
		log.Debugf("count query: %s", stmt)
		var count int64
		err := s.db.QueryRow(stmt, args...).Scan(&count)
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, errors.WithStack(err)
		}
		return int(count), true, nil
	}, s.notifier)
}

func (s *Source) countQuery(spec *query.Spec, limit *query.Limit) string {
	if s.countBuilder != nil {
		return s.rebind(s.countBuilder.BuildCountQuery(spec, limit))
	}
	if s.driver == DriverPgx {
		// postgres requires an alias on subqueries in FROM
		return s.rebind(fmt.Sprintf("SELECT COUNT(*) AS count FROM (%s) AS counted",
			query.BuildSelect(spec, spec.Columns(), limit)))
	}
	return query.BuildCount(spec, limit)
}

func (s *Source) Fetch(spec *query.Spec, offset int, size int) (source.ResultSet, error) {
	limit := spec.WindowLimit(offset, size)
	stmt := s.rebind(query.BuildSelect(spec, spec.Columns(), &limit))
	log.Debugf("fetch query: %s", stmt)
	names, rows, err := s.queryRows(stmt, spec.SelectionArgs())
	if err != nil {
		return nil, err
	}
	return source.NewRowsResultSet(names, rows, nil), nil
}

func (s *Source) ColumnNames(spec *query.Spec) ([]string, error) {
	if s.countBuilder == nil {
		if names := query.ColumnNamesFromProjection(spec.Columns()); names != nil {
			return names, nil
		}
	}
	stmt := s.rebind(query.BuildSelect(spec, spec.Columns(), &query.Limit{}))
	names, _, err := s.queryRows(stmt, spec.SelectionArgs())
	return names, err
}

func (s *Source) queryRows(stmt string, args []interface{}) ([]string, *common.Rows, error) {
	rs, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	defer common.InvokeCloser(rs)
	names, err := rs.Columns()
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	rows := common.NewRows(len(names), 0)
	vals := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rs.Next() {
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			nv, err := common.Normalize(v)
			if err != nil {
				// types with no cell representation are read as text
				nv = fmt.Sprintf("%v", v)
			}
			if b, ok := nv.([]byte); ok {
				nv = common.CopyByteSlice(b)
			}
			row[i] = nv
		}
		if err := rows.AppendValues(row...); err != nil {
			return nil, nil, err
		}
	}
	if err := rs.Err(); err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return names, rows, nil
}

// rebind rewrites ? placeholders as $1, $2... for postgres. Quoted text is left alone.
func (s *Source) rebind(stmt string) string {
	if s.driver != DriverPgx {
		return stmt
	}
	return rebindDollar(stmt)
}

func rebindDollar(stmt string) string {
	sb := strings.Builder{}
	n := 0
	var quote rune
	for _, r := range stmt {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
