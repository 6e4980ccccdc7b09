package datastore

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"gorm.io/gorm"
)

// OperationRecorder receives per-statement timings. Implemented by the
// observability datastore metrics.
type OperationRecorder interface {
	RecordDBOperation(operation, table, status string, duration time.Duration)
}

const (
	pluginName   = "rfscan:store"
	startTimeKey = "rfscan:start_time"
)

// storePlugin times every statement and raises change notifications.
type storePlugin struct {
	recorder OperationRecorder
	hub      *changeHub
}

func (p *storePlugin) Name() string {
	return pluginName
}

func (p *storePlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("rfscan:before_create", p.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("rfscan:after_create", p.after("insert", ChangeInsert)); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("rfscan:before_update", p.before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("rfscan:after_update", p.after("update", ChangeUpdate)); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("rfscan:before_delete", p.before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("rfscan:after_delete", p.after("delete", ChangeDelete)); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("rfscan:before_query", p.before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("rfscan:after_query", p.after("query", "")); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("rfscan:before_row", p.before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("rfscan:after_row", p.after("query", "")); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("rfscan:before_raw", p.before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("rfscan:after_raw", p.after("exec", ChangeUpdate))
}

func (p *storePlugin) before(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

// after records timing under operation and, for writes that changed rows,
// raises op on the statement's table.
func (p *storePlugin) after(operation string, op ChangeOp) func(*gorm.DB) {
	return func(db *gorm.DB) {
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		if p.recorder != nil {
			status := "success"
			if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
				status = "error"
			}
			var elapsed time.Duration
			if v, ok := db.InstanceGet(startTimeKey); ok {
				if start, ok := v.(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			p.recorder.RecordDBOperation(operation, table, status, elapsed)
		}

		if op == "" || db.Error != nil || db.RowsAffected == 0 || table == "unknown" {
			return
		}
		ev := ChangeEvent{Table: table, Op: op}
		if v, ok := db.Get(changeSetKey); ok {
			if pending, ok := v.(*changeSet); ok {
				pending.add(ev)
				return
			}
		}
		p.hub.publish(ev)
	}
}
