package database

import (
	"time"

	"gorm.io/gorm"
)

type ConditionFunc func(*Condition) *Condition

type Condition struct {
	From time.Time
	To   time.Time

	AlertType string
	OnlyOpen  bool

	ascending bool

	offset *int
	limit  *int
}

func NewCondition(conditions ...ConditionFunc) *Condition {
	c := &Condition{}
	for _, f := range conditions {
		f(c)
	}
	return c
}

// Apply adds the filters, ordering and paging of the condition to a query
// against a table with a timestamp column.
func (c *Condition) Apply(query *gorm.DB) *gorm.DB {
	if !c.From.IsZero() {
		query = query.Where("timestamp >= ?", c.From.UTC())
	}
	if !c.To.IsZero() {
		query = query.Where("timestamp <= ?", c.To.UTC())
	}
	if c.AlertType != "" {
		query = query.Where("alert_type = ?", c.AlertType)
	}
	if c.OnlyOpen {
		query = query.Where("is_resolved = ?", false)
	}

	if c.ascending {
		query = query.Order("timestamp asc")
	} else {
		query = query.Order("timestamp desc")
	}

	if c.offset != nil {
		query = query.Offset(*c.offset)
	}
	if c.limit != nil {
		query = query.Limit(*c.limit)
	}

	return query
}

func WithTimeRange(from, to time.Time) ConditionFunc {
	return func(c *Condition) *Condition {
		c.From = from
		c.To = to
		return c
	}
}

func WithAlertType(alertType string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.AlertType = alertType
		return c
	}
}

func WithOnlyOpen() ConditionFunc {
	return func(c *Condition) *Condition {
		c.OnlyOpen = true
		return c
	}
}

func WithAscendingOrder() ConditionFunc {
	return func(c *Condition) *Condition {
		c.ascending = true
		return c
	}
}

func WithOffset(offset int) ConditionFunc {
	return func(c *Condition) *Condition {
		if offset > 0 {
			c.offset = &offset
		}
		return c
	}
}

func WithLimit(limit int) ConditionFunc {
	return func(c *Condition) *Condition {
		if limit > 0 {
			c.limit = &limit
		}
		return c
	}
}
