package listing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	pingAttempts = 5
	pingInterval = 2 * time.Second
)

// PostgresSource bulk-loads listings from a read-only "listings" table with columns
// id, name, type, bhk, carpet, price, price_cr, lat, lng. Nullable numeric columns map
// to absent Numbers.
type PostgresSource struct {
	db *sql.DB
}

// OpenPostgres connects with dsn and waits for the server to answer a ping.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	for i := range pingAttempts {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if i == pingAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(pingInterval):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	return &PostgresSource{db: db}, nil
}

// Load returns every listing ordered by id.
func (p *PostgresSource) Load(ctx context.Context) ([]Listing, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(type, ''), bhk, carpet, price, price_cr, lat, lng
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch listings: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var (
			l                           Listing
			typ                         string
			bhk, carpet, price, priceCr sql.NullFloat64
		)
		if err := rows.Scan(&l.ID, &l.Name, &typ, &bhk, &carpet, &price, &priceCr, &l.Lat, &l.Lng); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Type = Type(typ)
		l.BHK = fromNull(bhk)
		l.Carpet = fromNull(carpet)
		l.Price = fromNull(price)
		l.PriceCr = fromNull(priceCr)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresSource) Close() error {
	return p.db.Close()
}

func fromNull(v sql.NullFloat64) Number {
	if !v.Valid {
		return Number{}
	}
	return Num(v.Float64)
}
