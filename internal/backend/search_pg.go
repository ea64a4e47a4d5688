/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SearchQuery filters the shared archive catalog.
type SearchQuery struct {
	Text      string // free text, matched via tsvector
	Format    string // exact format filter (FDX, FOUNTAIN, PDF, TXT)
	Character string // substring match inside flattened dialogue
	Blocked   *bool  // nil means both
	Limit     int
	Offset    int
}

// SearchHit is one row of a catalog search.
type SearchHit struct {
	ID      int64
	Title   string
	Format  string
	Snippet string
}

// SearchPG executes a search over the Postgres scripts table using tsvector
// and filters.
func SearchPG(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchHit, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT s.id, s.title, s.format, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(s.raw_text,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM scripts s WHERE s.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text)
	} else {
		b.WriteString("SELECT s.id, s.title, s.format, '' AS snippet FROM scripts s WHERE TRUE ")
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f := strings.TrimSpace(q.Format); f != "" {
		b.WriteString(" AND s.format = " + place(strings.ToUpper(f)) + " ")
	}
	if c := strings.TrimSpace(q.Character); c != "" {
		b.WriteString(" AND lower(COALESCE(s.raw_text,'')) LIKE " + place("%"+strings.ToLower(c)+":%") + " ")
	}
	if q.Blocked != nil {
		b.WriteString(" AND s.blocked = " + place(*q.Blocked) + " ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY s.updated_at DESC, s.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Format, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
