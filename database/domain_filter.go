package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

func (d Datasource) CreateDomainFilter(ctx context.Context, filter *model.DomainFilter) (*model.DomainFilter, error) {
	filter.FilterID = model.GenerateUUIDWithSuffix("dft")
	filter.Domain = strings.ToLower(strings.TrimSpace(filter.Domain))
	filter.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO domain_filters (filter_id, domain, category, created_at)
		VALUES ($1, $2, $3, $4)
	`, filter.FilterID, filter.Domain, filter.Category, filter.CreatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Domain filter already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create domain filter", err)
	}
	return filter, nil
}

func (d Datasource) GetDomainFilterByDomain(ctx context.Context, domain string) (*model.DomainFilter, error) {
	filter := model.DomainFilter{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT filter_id, domain, category, created_at
		FROM domain_filters
		WHERE domain = LOWER($1)
	`, domain).Scan(&filter.FilterID, &filter.Domain, &filter.Category, &filter.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve domain filter", err)
	}
	return &filter, nil
}

func (d Datasource) GetAllDomainFilters(ctx context.Context) ([]*model.DomainFilter, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT filter_id, domain, category, created_at
		FROM domain_filters
		ORDER BY domain ASC
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve domain filters", err)
	}
	defer rows.Close()

	filters := []*model.DomainFilter{}
	for rows.Next() {
		filter := model.DomainFilter{}
		err = rows.Scan(&filter.FilterID, &filter.Domain, &filter.Category, &filter.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan domain filter data", err)
		}
		filters = append(filters, &filter)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over domain filters", err)
	}
	return filters, nil
}

func (d Datasource) DeleteDomainFilter(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM domain_filters
		WHERE filter_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete domain filter", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read delete result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Domain filter not found", nil)
	}
	return nil
}
