package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

// getExec returns the executor handed by the service (a transaction) or the repository's own.
func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, exec, query, arg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// whereClause accumulates AND-ed conditions written with `?` placeholders.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is an ILIKE operand matching s literally, anywhere in the column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// build expands slice args (IN clauses) and rebinds the placeholders for exec's driver.
func (w *whereClause) build(exec core.DBExecutor, query string) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, w.args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "building query")
	}
	return exec.Rebind(q), args, nil
}

func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// columns prefixes every column with alias, optionally renaming it for nested struct scans.
func columns(cols []string, alias, as string) string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		col := alias + "." + c
		if as != "" {
			col += ` AS "` + as + "." + c + `"`
		}
		out = append(out, col)
	}
	return strings.Join(out, ", ")
}

// countRow scans GROUP BY counts.
type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func countMap(rows []countRow) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.Key] = r.Count
	}
	return m
}
