package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

type marketPricesRepo struct {
	db dbtx
}

const marketPriceColumns = `id, commodity, market, district, state, category, unit, price, min_price, max_price,
	price_date, is_active, created_by, updated_by, created_at, updated_at`

func scanMarketPrice(row scanner) (domain.MarketPrice, error) {
	var (
		p                   domain.MarketPrice
		category, unit      string
		district, updatedBy sql.NullString
	)
	err := row.Scan(&p.ID, &p.Commodity, &p.Market, &district, &p.State, &category, &unit, &p.Price, &p.MinPrice, &p.MaxPrice,
		&p.PriceDate, &p.IsActive, &p.CreatedBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.MarketPrice{}, err
	}
	p.Category = domain.PriceCategory(category)
	p.Unit = domain.PriceUnit(unit)
	p.District = mapNullString(district)
	p.UpdatedBy = mapNullString(updatedBy)
	p.PriceDate = p.PriceDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *marketPricesRepo) Create(ctx context.Context, p domain.MarketPrice) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO market_prices (`+marketPriceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Commodity, p.Market, mapStringNull(p.District), p.State, string(p.Category), string(p.Unit),
		p.Price, p.MinPrice, p.MaxPrice, p.PriceDate.UTC(), p.IsActive, p.CreatedBy, mapStringNull(p.UpdatedBy),
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *marketPricesRepo) GetByID(ctx context.Context, id string) (domain.MarketPrice, error) {
	p, err := scanMarketPrice(r.db.QueryRowContext(ctx, `SELECT `+marketPriceColumns+` FROM market_prices WHERE id = ?`, id))
	return p, mapNotFound(err)
}

func (r *marketPricesRepo) Update(ctx context.Context, p domain.MarketPrice) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE market_prices
		SET commodity = ?, market = ?, district = ?, state = ?, category = ?, unit = ?, price = ?, min_price = ?,
		    max_price = ?, price_date = ?, is_active = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		p.Commodity, p.Market, mapStringNull(p.District), p.State, string(p.Category), string(p.Unit), p.Price, p.MinPrice,
		p.MaxPrice, p.PriceDate.UTC(), p.IsActive, mapStringNull(p.UpdatedBy), p.UpdatedAt.UTC(), p.ID,
	))
}

// likeEscaper protects LIKE wildcards in user input; patterns use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func (r *marketPricesRepo) List(ctx context.Context, filter domain.MarketPriceFilter) ([]domain.MarketPrice, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if m := strings.TrimSpace(filter.Market); m != "" {
		where = append(where, `LOWER(market) LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(m))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		where = append(where, `LOWER(commodity) LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(q))
	}

	q := `SELECT ` + marketPriceColumns + ` FROM market_prices`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += ` ORDER BY updated_at DESC, id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MarketPrice
	for rows.Next() {
		p, err := scanMarketPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
