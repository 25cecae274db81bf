package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/concert-calendar/internal/model"
)

// ConcertSearchQuery restricts concerts to an inclusive date window and,
// when Term is non-empty, to those whose title, artist or venue contains
// Term case-insensitively.
type ConcertSearchQuery struct {
	From time.Time
	To   time.Time
	Term string
}

// likeEscaper escapes LIKE wildcards with '!' so a search for "100%" is a
// literal match.  '!' is used because both MySQL and SQLite accept it in
// an ESCAPE clause without backslash quoting rules.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// Search returns the concerts matching q ordered by start time, then id.
func (r *ConcertRepo) Search(ctx context.Context, q ConcertSearchQuery) ([]model.Concert, error) {
	where := []string{"starts_at BETWEEN ? AND ?"}
	args := []any{q.From.UTC(), q.To.UTC()}

	if term := strings.TrimSpace(q.Term); term != "" {
		where = append(where,
			"(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(artist) LIKE ? ESCAPE '!' OR LOWER(venue) LIKE ? ESCAPE '!')")
		p := likePattern(term)
		args = append(args, p, p, p)
	}

	query := `SELECT ` + concertColumns + ` FROM concerts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY starts_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Concert{}
	for rows.Next() {
		c, err := scanConcert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
