// Copyright 2022 MatrixOrigin.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package grafana

import (
	"context"
	"net/http"

	"github.com/K-Phoen/grabana"
	"github.com/K-Phoen/grabana/axis"
	"github.com/K-Phoen/grabana/graph"
	"github.com/K-Phoen/grabana/row"
	"github.com/K-Phoen/grabana/singlestat"
	"github.com/K-Phoen/grabana/table"
	"github.com/K-Phoen/grabana/target/prometheus"
	"github.com/K-Phoen/grabana/variable/interval"
)

var (
	folderName = "Cubewriter"
)

// DashboardCreator cubewriter grafana dashboard creator
type DashboardCreator struct {
	cli        *grabana.Client
	dataSource string
}

// NewDashboardCreator returns a dashboard creator
func NewDashboardCreator(grafana, apiKey, dataSource string) *DashboardCreator {
	return &DashboardCreator{
		cli:        grabana.NewClient(http.DefaultClient, grafana, apiKey),
		dataSource: dataSource,
	}
}

// Create create or update the dashboard
func (c *DashboardCreator) Create(ctx context.Context) error {
	folder, err := c.createFolder(ctx)
	if err != nil {
		return err
	}

	_, err = c.cli.UpsertDashboard(ctx, folder, c.dashboard())
	return err
}

func (c *DashboardCreator) createFolder(ctx context.Context) (*grabana.Folder, error) {
	folder, err := c.cli.GetFolderByTitle(ctx, folderName)
	if err != nil && err != grabana.ErrFolderNotFound {
		return nil, err
	}

	if folder == nil {
		folder, err = c.cli.CreateFolder(ctx, folderName)
		if err != nil {
			return nil, err
		}
	}

	return folder, nil
}

func (c *DashboardCreator) dashboard() grabana.DashboardBuilder {
	return grabana.NewDashboardBuilder("Writer Status",
		grabana.AutoRefresh("5s"),
		grabana.Tags([]string{"generated"}),
		grabana.VariableAsInterval(
			"interval",
			interval.Values([]string{"30s", "1m", "5m", "10m", "30m", "1h", "6h", "12h"}),
		),
		c.overviewRow(),
		c.rowsRow(),
		c.batchRow(),
		c.rpcRow(),
		c.storeRow())
}

func (c *DashboardCreator) overviewRow() grabana.DashboardBuilderOption {
	return grabana.Row(
		"Overview status",
		row.WithSingleStat(
			"Rows Submitted",
			singlestat.Height("200px"),
			singlestat.Span(4),
			singlestat.WithPrometheusTarget(
				`sum(cubewriter_writer_rows_total{status="submitted"})`),
		),
		row.WithSingleStat(
			"Rows Failed",
			singlestat.Height("200px"),
			singlestat.Span(4),
			singlestat.WithPrometheusTarget(
				`sum(cubewriter_writer_rows_total{status="failed"})`),
		),
		row.WithSingleStat(
			"Dirty Rows",
			singlestat.Height("200px"),
			singlestat.Span(4),
			singlestat.WithPrometheusTarget(
				"sum(cubewriter_writer_dirty_rows)"),
		),
	)
}

func (c *DashboardCreator) rowsRow() grabana.DashboardBuilderOption {
	return grabana.Row(
		"Rows status",
		c.withGraph("Rows", 6,
			"sum(rate(cubewriter_writer_rows_total[$interval])) by (status)",
			"{{ status }}"),
		c.withGraph("Ingestion buffer", 3,
			"sum(cubewriter_writer_buffer_length) by (table)",
			"{{ table }}"),
		c.withGraph("Inflight batches", 3,
			"sum(cubewriter_writer_inflight_batches) by (table)",
			"{{ table }}"),
	)
}

func (c *DashboardCreator) batchRow() grabana.DashboardBuilderOption {
	return grabana.Row(
		"Batch status",
		c.withGraph("50% batch rows", 3,
			`histogram_quantile(0.50, sum(rate(cubewriter_writer_batch_rows_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Min(0)),
		c.withGraph("99% batch rows", 3,
			`histogram_quantile(0.99, sum(rate(cubewriter_writer_batch_rows_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Min(0)),
		c.withGraph("50% batch size", 3,
			`histogram_quantile(0.50, sum(rate(cubewriter_writer_batch_bytes_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Unit("bytes"), axis.Min(0)),
		c.withGraph("99% batch size", 3,
			`histogram_quantile(0.99, sum(rate(cubewriter_writer_batch_bytes_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Unit("bytes"), axis.Min(0)),
	)
}

func (c *DashboardCreator) rpcRow() grabana.DashboardBuilderOption {
	return grabana.Row(
		"RPC status",
		c.withGraph("RPCs", 4,
			"sum(rate(cubewriter_writer_rpc_total[$interval])) by (result)",
			"{{ result }}"),
		c.withGraph("50% rpc time", 4,
			`histogram_quantile(0.50, sum(rate(cubewriter_writer_rpc_duration_seconds_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Unit("s"), axis.Min(0)),
		c.withGraph("99% rpc time", 4,
			`histogram_quantile(0.99, sum(rate(cubewriter_writer_rpc_duration_seconds_bucket[$interval])) by (le, table))`,
			"{{ table }}", axis.Unit("s"), axis.Min(0)),
	)
}

func (c *DashboardCreator) storeRow() grabana.DashboardBuilderOption {
	return grabana.Row(
		"Store status",
		c.withTable("Rows applied", 4,
			"sum(cubewriter_store_rows_total) by (code)",
			"{{ code }}"),
		c.withGraph("Requests received", 4,
			"sum(rate(cubewriter_server_request_total[$interval])) by (type)",
			"{{ type }}"),
		c.withGraph("99% apply time", 4,
			`histogram_quantile(0.99, sum(rate(cubewriter_store_apply_duration_seconds_bucket[$interval])) by (le, instance))`,
			"{{ instance }}", axis.Unit("s"), axis.Min(0)),
	)
}

func (c *DashboardCreator) withGraph(title string, span float32, pql string, legend string, opts ...axis.Option) row.Option {
	return row.WithGraph(
		title,
		graph.Span(span),
		graph.Height("400px"),
		graph.DataSource(c.dataSource),
		graph.WithPrometheusTarget(
			pql,
			prometheus.Legend(legend),
		),
		graph.LeftYAxis(opts...),
	)
}

func (c *DashboardCreator) withTable(title string, span float32, pql string, legend string) row.Option {
	return row.WithTable(
		title,
		table.Span(span),
		table.Height("400px"),
		table.DataSource(c.dataSource),
		table.WithPrometheusTarget(
			pql,
			prometheus.Legend(legend)),
		table.AsTimeSeriesAggregations([]table.Aggregation{
			{Label: "Current", Type: table.Current},
			{Label: "Max", Type: table.Max},
			{Label: "Min", Type: table.Min},
		}),
	)
}
