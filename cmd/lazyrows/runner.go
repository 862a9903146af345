package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/conf"
	"github.com/squareup/lazyrows/cursor"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/kvsource"
	plog "github.com/squareup/lazyrows/log"
	"github.com/squareup/lazyrows/memsource"
	"github.com/squareup/lazyrows/metrics/prometheus"
	"github.com/squareup/lazyrows/shell"
	"github.com/squareup/lazyrows/source"
	"github.com/squareup/lazyrows/sqlsource"
)

const seedTable = "items"

type arguments struct {
	Config kong.ConfigFlag `help:"Path to config file" type:"existingfile"`
	Log    plog.Config     `help:"Configuration for the logger" embed:"" prefix:"log-"`
	Cursor conf.Config     `help:"Cursor and data source configuration" embed:"" prefix:""`
	VI     bool            `help:"Enable VI mode."`
	Seed   int             `help:"Number of sample rows to load into an items table when using the memory driver" default:"0"`
}

type runner struct {
	args     arguments
	factory  *prometheus.Factory
	src      source.DataSource
	closers  []io.Closer
	executor *shell.Executor
}

func (r *runner) setup(args []string, out io.Writer) error {
	parser, err := kong.New(&r.args, kong.Configuration(konghcl.Loader))
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := parser.Parse(args); err != nil {
		return errors.WithStack(err)
	}
	if err := r.args.Cursor.Validate(); err != nil {
		return err
	}
	logCloser, err := r.args.Log.Configure()
	if err != nil {
		return err
	}
	r.closers = append(r.closers, logCloser)

	r.factory = prometheus.NewFactory(r.args.Cursor)
	if err := r.factory.Start(); err != nil {
		return err
	}
	m, err := cursor.NewMetrics(r.factory)
	if err != nil {
		return err
	}
	src, err := openSource(&r.args.Cursor, r.args.Seed)
	if err != nil {
		return err
	}
	r.src = src
	if closer, ok := src.(io.Closer); ok {
		r.closers = append(r.closers, closer)
	}
	opts := cursor.OptionsFromConfig(&r.args.Cursor)
	opts.Metrics = m
	r.executor = shell.NewExecutor(src, opts, out)
	return nil
}

func openSource(cfg *conf.Config, seed int) (source.DataSource, error) {
	switch cfg.Driver {
	case sqlsource.DriverSQLite, sqlsource.DriverPgx:
		src, err := sqlsource.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "pebble":
		src, err := kvsource.Open(cfg.DSN, nil)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := memsource.New(nil)
		if err != nil {
			return nil, err
		}
		if seed > 0 {
			if err := seedItems(src, seed); err != nil {
				return nil, err
			}
		}
		return src, nil
	}
}

func seedItems(src *memsource.Source, numRows int) error {
	if _, err := src.CreateTable(seedTable, []common.ColumnInfo{
		{Name: "id", Type: common.TypeBigInt},
		{Name: "name", Type: common.TypeVarchar},
		{Name: "price", Type: common.TypeDouble},
	}); err != nil {
		return err
	}
	rows := make([][]interface{}, numRows)
	for i := range rows {
		rows[i] = []interface{}{i, fmt.Sprintf("item-%d", i), float64(i%20) + 0.5}
	}
	return src.Insert(seedTable, rows...)
}

func (r *runner) close() error {
	var firstErr error
	if r.executor != nil {
		firstErr = r.executor.Close()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.factory != nil {
		if err := r.factory.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
