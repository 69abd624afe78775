// Package journal persists the order, event and position stream of a
// strategy run to SQLite. It observes the event flow, it never feeds back
// into strategy state.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quantfabric/strata/pkg/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id          TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	type        TEXT NOT NULL,
	quantity    INTEGER NOT NULL,
	price       TEXT,
	status      TEXT NOT NULL,
	position_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_events (
	event_id  INTEGER PRIMARY KEY,
	order_id  TEXT NOT NULL,
	kind      TEXT NOT NULL,
	price     TEXT,
	reason    TEXT,
	ts        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS time_events (
	event_id  INTEGER PRIMARY KEY,
	label     TEXT NOT NULL,
	due_time  TIMESTAMP NOT NULL,
	priority  INTEGER NOT NULL,
	ts        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id        TEXT PRIMARY KEY,
	order_ids TEXT NOT NULL,
	ts        TIMESTAMP NOT NULL
);
`

type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database and ensures the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open journal %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) SaveOrder(ctx context.Context, order common.Order, positionId string) error {
	query := `
	INSERT INTO orders (id, symbol, side, type, quantity, price, status, position_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET price = excluded.price, status = excluded.status;
	`
	_, err := j.db.ExecContext(ctx, query,
		order.Id,
		order.Symbol,
		order.Side.String(),
		order.Type.String(),
		order.Quantity,
		order.Price.String(),
		order.Status.String(),
		positionId,
	)
	return err
}

func (j *Journal) SaveOrderEvent(ctx context.Context, ev common.OrderEvent) error {
	var price, reason string
	switch e := ev.(type) {
	case common.OrderModified:
		price = e.ModifiedPrice.String()
	case common.OrderFilled:
		price = e.AveragePrice.String()
	case common.OrderRejected:
		reason = e.Reason
	case common.OrderCancelReject:
		reason = e.Reason
	}

	query := `
	INSERT INTO order_events (event_id, order_id, kind, price, reason, ts)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (event_id) DO NOTHING;
	`
	_, err := j.db.ExecContext(ctx, query,
		int64(ev.EventID()), // #nosec G115
		ev.OrderID(),
		eventKind(ev),
		price,
		reason,
		ev.Occurred(),
	)
	return err
}

func (j *Journal) SaveTimeEvent(ctx context.Context, te common.TimeEvent) error {
	query := `
	INSERT INTO time_events (event_id, label, due_time, priority, ts)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (event_id) DO NOTHING;
	`
	_, err := j.db.ExecContext(ctx, query,
		int64(te.EventID()), // #nosec G115
		te.Label,
		te.DueTime,
		te.Priority,
		te.Occurred(),
	)
	return err
}

func (j *Journal) SavePosition(ctx context.Context, position common.Position) error {
	query := `
	INSERT INTO positions (id, order_ids, ts)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET order_ids = excluded.order_ids, ts = excluded.ts;
	`
	_, err := j.db.ExecContext(ctx, query,
		position.Id,
		strings.Join(position.OrderIds, ","),
		time.Now().UTC(),
	)
	return err
}

// OrderEventCount reports how many events were journaled for an order.
func (j *Journal) OrderEventCount(ctx context.Context, orderId string) (int, error) {
	var count int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_events WHERE order_id = ?`, orderId).Scan(&count)
	return count, err
}

func eventKind(ev common.OrderEvent) string {
	switch ev.(type) {
	case common.OrderSubmitted:
		return "submitted"
	case common.OrderAccepted:
		return "accepted"
	case common.OrderRejected:
		return "rejected"
	case common.OrderWorking:
		return "working"
	case common.OrderExpired:
		return "expired"
	case common.OrderModified:
		return "modified"
	case common.OrderCancelled:
		return "cancelled"
	case common.OrderCancelReject:
		return "cancel_reject"
	case common.OrderFilled:
		return "filled"
	default:
		return "unknown"
	}
}
