package pgsql

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zeptools/gw-impose/db/sqldb"
)

type Handle struct {
	*pgxpool.Pool // [Embedded]
}

var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	tag, err := h.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Result{tag: tag}, nil
}

func (h *Handle) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	rows, err := h.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{current: rows}, nil
}

func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	row := h.Pool.QueryRow(ctx, query, args...)
	return &Row{row: row}
}

// Listen holds one pooled connection for as long as ctx lives
func (h *Handle) Listen(ctx context.Context, channel string) (<-chan sqldb.Notification, error) {
	conn, err := h.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = conn.Exec(ctx, fmt.Sprintf("LISTEN %s;", pgx.Identifier{channel}.Sanitize())); err != nil {
		conn.Release()
		return nil, fmt.Errorf("LISTEN %s: %w", channel, err)
	}

	notifyCh := make(chan sqldb.Notification)
	go func() {
		defer conn.Release()
		defer close(notifyCh)
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[WARN][%s] listen loop ended for %s: %v", DBType, channel, err)
				}
				return
			}
			select {
			case notifyCh <- sqldb.Notification{
				PID:     notification.PID,
				Channel: notification.Channel,
				Payload: notification.Payload,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return notifyCh, nil
}
