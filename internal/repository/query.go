package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SergeiKhy/shortlink/internal/models"
)

// PageSize количество ссылок на одной странице списка
const PageSize = 10

// sortColumns допустимые поля сортировки и соответствующие им колонки
var sortColumns = map[string]string{
	"key":         "short_key",
	"url":         "url",
	"title":       "title",
	"description": "description",
	"clicks":      "clicks",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"expiresAt":   "expires_at",
}

const linkColumns = `short_key, url, title, description, image, archived, expires_at, clicks, user_id, created_at, updated_at`

type dialect struct {
	placeholder func(n int) string
	like        string
	// positional параметры без номеров, повторное использование невозможно
	positional bool
}

var (
	postgresDialect = dialect{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		like:        "ILIKE",
	}
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		like:        "LIKE",
		positional:  true,
	}
)

type listQuery struct {
	where  string
	args   []any
	order  string
	limit  int
	offset int
	page   int
}

func buildListQuery(filter models.ListFilter, d dialect) (*listQuery, error) {
	q := &listQuery{limit: PageSize, page: filter.Page}
	if q.page < 1 {
		q.page = 1
	}
	q.offset = (q.page - 1) * PageSize

	var conds []string
	if filter.UserID != "" {
		q.args = append(q.args, filter.UserID)
		conds = append(conds, "user_id = "+d.placeholder(len(q.args)))
	}
	if !filter.IncludeArchived {
		q.args = append(q.args, false)
		conds = append(conds, "archived = "+d.placeholder(len(q.args)))
	}
	if filter.Search != "" {
		q.args = append(q.args, "%"+escapeLike(filter.Search)+"%")
		p := d.placeholder(len(q.args))
		var parts []string
		for _, col := range []string{"short_key", "url", "title", "description"} {
			parts = append(parts, fmt.Sprintf(`%s %s %s ESCAPE '\'`, col, d.like, p))
		}
		if d.positional {
			pattern := q.args[len(q.args)-1]
			for i := 1; i < len(parts); i++ {
				q.args = append(q.args, pattern)
			}
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	if len(conds) > 0 {
		q.where = " WHERE " + strings.Join(conds, " AND ")
	}

	q.order = " ORDER BY created_at ASC, short_key ASC"
	if filter.Sort != "" {
		col, ok := sortColumns[filter.Sort]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, filter.Sort)
		}
		q.order = fmt.Sprintf(" ORDER BY %s ASC, short_key ASC", col)
	}

	return q, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
