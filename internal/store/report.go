package store

import (
	"context"
	"time"

	"sales-service/internal/models"
)

// OrderReport aggregates the read side over [start, end]: order count and
// total value for orders dated in the window, the distinct products those
// orders touched, and commission owed on finished affiliate orders.
func (s *Store) OrderReport(ctx context.Context, start, end time.Time) (*models.OrderReport, error) {
	report := &models.OrderReport{Start: start, End: end}

	err := s.db.GetContext(ctx, report, `
		SELECT COUNT(*) AS orders_count,
		       COALESCE(SUM(total_value), 0) AS total_value
		FROM orders
		WHERE order_date BETWEEN $1 AND $2`, start, end)
	if err != nil {
		return nil, err
	}

	err = s.db.GetContext(ctx, &report.DistinctProducts, `
		SELECT COUNT(DISTINCT li.product_id)
		FROM line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.order_date BETWEEN $1 AND $2`, start, end)
	if err != nil {
		return nil, err
	}

	err = s.db.GetContext(ctx, &report.CommissionOwed, `
		SELECT COALESCE(SUM(o.total_value * a.commission_percent / 100), 0)
		FROM orders o
		JOIN affiliates a ON a.id = o.affiliate_id
		WHERE o.status = $1 AND o.order_date BETWEEN $2 AND $3`,
		models.OrderStatusFinished, start, end)
	if err != nil {
		return nil, err
	}

	return report, nil
}
