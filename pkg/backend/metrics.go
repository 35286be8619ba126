// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the three series every query execution feeds, regardless of
// which of the ~15 query types or which backend ran it. querybuilder.Run is
// the single call site that observes them, so no individual query
// implementation needs to know metrics exist.
var (
	QueryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_query_total",
		Help: "Total query executions by backend and query type.",
	}, []string{"backend", "query"})

	QueryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_query_errors_total",
		Help: "Query executions that returned an error, by backend and query type.",
	}, []string{"backend", "query"})

	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cie_query_duration_seconds",
		Help:    "Query execution latency in seconds, by backend and query type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "query"})
)

func init() {
	prometheus.MustRegister(QueryTotal, QueryErrorsTotal, QueryDuration)
}

// ObserveQuery records one execution's outcome and latency. Callers pass
// the elapsed duration directly rather than a start time, so the same
// helper works whether the caller measured with time.Since or received a
// duration from elsewhere.
func ObserveQuery(backendName, queryName string, elapsed time.Duration, err error) {
	QueryTotal.WithLabelValues(backendName, queryName).Inc()
	QueryDuration.WithLabelValues(backendName, queryName).Observe(elapsed.Seconds())
	if err != nil {
		QueryErrorsTotal.WithLabelValues(backendName, queryName).Inc()
	}
}
