// Package ws implements a gateway client speaking JSON frames over a
// websocket. Outbound requests are serialized through a write pump, inbound
// bars and order events are decoded and posted to the strategy router.
package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

const (
	writeQueueSize = 100
	writeDeadline  = 10 * time.Second
)

type Client struct {
	conn   *websocket.Conn
	router *bus.Router
	logger *zap.Logger

	ctx       context.Context
	ctxCancel context.CancelFunc

	writeChan chan requestFrame
}

// Dial connects to the gateway and starts the read and write pumps.
func Dial(url string, router *bus.Router, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial gateway %q: %w", url, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:      conn,
		router:    router,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
		writeChan: make(chan requestFrame, writeQueueSize),
	}

	go c.read()
	go c.write()
	return c, nil
}

func (c *Client) Close() {
	c.ctxCancel()
	_ = c.conn.Close()
}

func (c *Client) SubmitOrder(ctx context.Context, order common.Order, positionId string) error {
	return c.enqueue(ctx, requestFrame{
		Type:       frameSubmit,
		Order:      newOrderPayload(order),
		PositionId: positionId,
	})
}

func (c *Client) CancelOrder(ctx context.Context, order common.Order) error {
	return c.enqueue(ctx, requestFrame{
		Type:    frameCancel,
		OrderId: order.Id,
	})
}

func (c *Client) ModifyOrder(ctx context.Context, order common.Order, newPrice fixed.Point) error {
	return c.enqueue(ctx, requestFrame{
		Type:    frameModify,
		OrderId: order.Id,
		Price:   newPrice.String(),
	})
}

func (c *Client) enqueue(ctx context.Context, frame requestFrame) error {
	select {
	case c.writeChan <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return fmt.Errorf("gateway connection closed")
	}
}

func (c *Client) write() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.writeChan:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Warn("cannot write frame", zap.Error(err))
				c.ctxCancel()
				return
			}
		}
	}
}

func (c *Client) read() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var frame eventFrame
			if err := c.conn.ReadJSON(&frame); err != nil {
				c.logger.Warn("cannot read data", zap.Error(err))
				c.ctxCancel()
				return
			}

			if frame.Type == frameBar {
				update, err := frame.toBarUpdate()
				if err != nil {
					c.logger.Warn("invalid bar frame", zap.Error(err), zap.String("symbol", frame.Symbol))
					continue
				}
				if err := c.router.Post(bus.BarEvent, update); err != nil {
					c.logger.Warn("unable to post bar", zap.Error(err), zap.String("symbol", frame.Symbol))
				}
				continue
			}

			ev, err := frame.toEvent()
			if err != nil {
				c.logger.Warn("invalid event frame", zap.Error(err), zap.String("type", frame.Type))
				continue
			}

			if err := c.router.Post(bus.OrderUpdateEvent, ev); err != nil {
				c.logger.Warn("unable to post order event", zap.Error(err), zap.String("order_id", frame.OrderId))
			}
		}
	}
}
