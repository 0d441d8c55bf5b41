package httpapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/liquidinvestigations/hoover3-sub000/cache"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

// rowCountCacheTTL matches spec.md §6's 6-minute memoization window for
// scylla_row_count, reusing C6's cache.WithCache the same way every ingest
// pipeline stage already does.
const rowCountCacheTTL = 6 * time.Minute

// defaultPageSize bounds db_explorer_run_query's result page when the
// caller doesn't specify one; querySQLMaxRows is the hard ceiling regardless
// of what the caller asks for, so one bad request can't pull an entire
// table into memory.
const (
	defaultPageSize = 200
	querySQLMaxRows = 5000
)

// tableInfo is one row of db_explorer_list_tables' response: a registered
// model's table name plus an approximate row count (pg_class.reltuples,
// refreshed by autovacuum/analyze — cheap, not exact, by design).
type tableInfo struct {
	Name          string `json:"name"`
	EstimatedRows int64  `json:"estimated_rows"`
}

// listTables implements the supplemented db_explorer_list_tables operation
// (SPEC_FULL.md §6): every model schema.Default knows about, scoped to the
// requested collection's Postgres schema.
func (h *handlers) listTables(c echo.Context) error {
	collection, err := model.NewIdentifier(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid collection id"})
	}

	models := schema.Default.ScyllaSchema()
	infos := make([]tableInfo, 0, len(models))
	coll := h.deps.RowStore.CollectionSession(collection)
	for _, m := range models {
		est, err := estimateRowCount(c.Request().Context(), coll, m.TableName.String())
		if err != nil {
			h.deps.Logger.WithError(err).Warnf("httpapi: estimate rows for %s", m.TableName)
			est = -1
		}
		infos = append(infos, tableInfo{Name: m.TableName.String(), EstimatedRows: est})
	}
	return c.JSON(http.StatusOK, infos)
}

func estimateRowCount(ctx context.Context, coll *session.CollectionSession, table string) (int64, error) {
	rows, err := coll.Query(ctx, `
		SELECT reltuples::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`, coll.Schema.String(), table)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var est int64
	if rows.Next() {
		if err := rows.Scan(&est); err != nil {
			return 0, err
		}
	}
	return est, rows.Err()
}

// rowCount implements scylla_row_count: an exact count, memoized per
// (collection, table) for rowCountCacheTTL via cache.WithCache — the exact
// count is expensive on a large table, so callers get a slightly stale
// number rather than a full scan on every request.
func (h *handlers) rowCount(c echo.Context) error {
	collection := c.Param("id")
	table := c.Param("table")

	type countKey struct {
		Collection string
		Table      string
	}

	count, err := cache.WithCache(c.Request().Context(), h.deps.Redis, "httpapi_row_count", rowCountCacheTTL,
		countKey{Collection: collection, Table: table},
		func(ctx context.Context) (int64, error) {
			coll := h.deps.RowStore.CollectionSession(model.Identifier(collection))
			row := coll.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", coll.Table(model.Identifier(table))))
			var n int64
			if err := row.Scan(&n); err != nil {
				return 0, err
			}
			return n, nil
		})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

// queryRequest is db_explorer_run_query's request body: a read-only SQL
// statement scoped to the collection's schema, plus an opaque pagination
// token from a previous response's next_page.
type queryRequest struct {
	SQL       string `json:"sql"`
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token"`
}

// queryResponse normalizes pgx's result shape into SPEC_FULL.md §6's
// generic {columns, rows, next_page} form, independent of which table or
// projection the caller asked for.
type queryResponse struct {
	Columns  []columnInfo `json:"columns"`
	Rows     [][]any      `json:"rows"`
	NextPage string       `json:"next_page,omitempty"`
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// runQuery implements db_explorer_run_query: runs req.SQL (expected to be a
// caller-authored SELECT against the collection's own schema — this surface
// trusts its JWT-authenticated callers the way an internal data-explorer
// tool does, not a public query endpoint) with an OFFSET/LIMIT window and
// returns one page plus an opaque continuation token.
func (h *handlers) runQuery(c echo.Context) error {
	collection := c.Param("id")
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SQL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sql is required"})
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > querySQLMaxRows {
		pageSize = querySQLMaxRows
	}
	offset, err := decodePageToken(req.PageToken)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid page_token"})
	}

	coll := h.deps.RowStore.CollectionSession(model.Identifier(collection))
	windowed := fmt.Sprintf("SELECT * FROM (%s) __page LIMIT %d OFFSET %d", req.SQL, pageSize+1, offset)
	rows, err := coll.Query(c.Request().Context(), windowed)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]columnInfo, len(fields))
	for i, f := range fields {
		cols[i] = columnInfo{Name: string(f.Name), Type: fmt.Sprintf("oid:%d", f.DataTypeOID)}
	}

	var resultRows [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		resultRows = append(resultRows, vals)
		if len(resultRows) == pageSize {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	resp := queryResponse{Columns: cols, Rows: resultRows}
	if len(resultRows) == pageSize {
		// A pageSize+1'th row would still have been produced by the LIMIT
		// above if one exists; since we stopped consuming at pageSize we
		// can't tell without peeking, so conservatively always offer a
		// next page when the page filled exactly — the next call returns
		// an empty page when there was nothing left.
		resp.NextPage = encodePageToken(offset + pageSize)
	}
	return c.JSON(http.StatusOK, resp)
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(raw))
}
