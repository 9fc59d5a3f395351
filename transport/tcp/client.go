// Copyright 2022 MatrixOrigin.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package tcp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fagongzi/goetty"
	"github.com/lni/goutils/syncutil"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/matrixorigin/cubewriter/transport/codec"
	"go.uber.org/zap"
)

var _ transport.Client = (*Client)(nil)

// Client is the tcp client of the table store server. All requests share one
// connection, responses are matched to requests by id.
type Client struct {
	addr    string
	opts    *options
	stopper *syncutil.Stopper
	id      uint64

	// connMu guards writes against reconnecting
	connMu sync.RWMutex
	conn   goetty.IOSession

	mu struct {
		sync.Mutex
		closed    bool
		connected bool
		inflight  map[uint64]chan *codec.Response
	}
}

// NewClient returns a client connected to the server at addr
func NewClient(addr string, opts ...Option) (*Client, error) {
	c := &Client{
		addr:    addr,
		opts:    &options{},
		stopper: syncutil.NewStopper(),
	}
	for _, opt := range opts {
		opt(c.opts)
	}
	c.opts.adjust()
	c.mu.inflight = make(map[uint64]chan *codec.Response)

	encoder, decoder := codec.NewCodec(c.opts.maxBodySize)
	c.conn = goetty.NewIOSession(goetty.WithCodec(encoder, decoder),
		goetty.WithEnableAsyncWrite(c.opts.sendBatch),
		goetty.WithLogger(c.opts.logger))

	if err := c.connect(); err != nil {
		return nil, err
	}

	c.stopper.RunWorker(c.readLoop)
	return c, nil
}

// BatchWriteRow implements transport.Transport
func (c *Client) BatchWriteRow(ctx context.Context, req *transport.BatchWriteRowRequest) *transport.Future {
	f := transport.NewFuture()
	id, respC, err := c.send(&codec.Request{
		Type:          codec.TypeBatchWriteRow,
		Table:         req.Table,
		BatchWriteRow: req,
	})
	if err != nil {
		f.Done(nil, err)
		return f
	}

	go func() {
		resp, err := c.wait(ctx, id, respC)
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			f.Done(nil, err)
			return
		}
		if resp.BatchWriteRow == nil ||
			len(resp.BatchWriteRow.Rows) != len(req.Rows) {
			f.Done(nil, transport.NewRowError(transport.InternalServerError,
				"response of request %d has unexpected row count", id))
			return
		}
		f.Done(resp.BatchWriteRow, nil)
	}()
	return f
}

// DescribeTable implements schema.Provider
func (c *Client) DescribeTable(ctx context.Context, table string) (schema.TableMeta, error) {
	resp, err := c.call(ctx, &codec.Request{
		Type:  codec.TypeDescribeTable,
		Table: table,
	})
	if err != nil {
		return schema.TableMeta{}, err
	}
	if resp.Table == nil {
		return schema.TableMeta{}, errors.Newf("missing table %s in response", table)
	}
	return *resp.Table, nil
}

// GetRow returns the latest version of every column of the row
func (c *Client) GetRow(ctx context.Context, table string, pk row.PrimaryKey) (transport.GetRowResponse, error) {
	resp, err := c.call(ctx, &codec.Request{
		Type:       codec.TypeGetRow,
		Table:      table,
		PrimaryKey: &pk,
	})
	if err != nil {
		return transport.GetRowResponse{}, err
	}
	if resp.Row == nil {
		return transport.GetRowResponse{}, nil
	}
	return *resp.Row, nil
}

// Close closes the connection, requests waiting for responses fail with
// transport.ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.mu.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.closed = true
	c.mu.Unlock()

	c.connMu.Lock()
	err := c.conn.Close()
	c.connMu.Unlock()

	c.stopper.Stop()
	c.failInflight(transport.ErrClosed)
	c.opts.logger.Info("client closed",
		log.RemoteAddressField(c.addr))
	return err
}

func (c *Client) call(ctx context.Context, req *codec.Request) (*codec.Response, error) {
	id, respC, err := c.send(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.wait(ctx, id, respC)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

func (c *Client) send(req *codec.Request) (uint64, chan *codec.Response, error) {
	id := atomic.AddUint64(&c.id, 1)
	req.ID = id
	respC := make(chan *codec.Response, 1)

	c.mu.Lock()
	if c.mu.closed {
		c.mu.Unlock()
		return 0, nil, transport.ErrClosed
	}
	if !c.mu.connected {
		c.mu.Unlock()
		return 0, nil, errors.Wrapf(transport.ErrConnectionClosed, "not connected to %s", c.addr)
	}
	c.mu.inflight[id] = respC
	c.mu.Unlock()

	c.connMu.RLock()
	err := c.conn.WriteAndFlush(req)
	c.connMu.RUnlock()
	if err != nil {
		c.removeInflight(id)
		c.opts.logger.Error("fail to send request",
			log.RequestIDField(id),
			zap.Error(err))
		return 0, nil, errors.Wrap(transport.ErrConnectionClosed, err.Error())
	}

	if ce := c.opts.logger.Check(zap.DebugLevel, "request sent"); ce != nil {
		ce.Write(log.RequestIDField(id), log.TableField(req.Table))
	}
	return id, respC, nil
}

func (c *Client) wait(ctx context.Context, id uint64, respC chan *codec.Response) (*codec.Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.rpcTimeout)
		defer cancel()
	}

	select {
	case resp := <-respC:
		if resp == nil {
			return nil, c.inflightError()
		}
		return resp, nil
	case <-ctx.Done():
		c.removeInflight(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(transport.ErrTimeout, "request %d", id)
		}
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	c.opts.logger.Info("read loop started",
		log.RemoteAddressField(c.addr))
	defer c.opts.logger.Info("read loop stopped",
		log.RemoteAddressField(c.addr))

	for {
		msg, err := c.conn.Read()
		if err != nil {
			if c.isClosed() {
				return
			}

			c.opts.logger.Error("fail to read response, reconnect later",
				log.RemoteAddressField(c.addr),
				zap.Error(err))
			c.setConnected(false)
			c.failInflight(transport.ErrConnectionClosed)
			if !c.reconnect() {
				return
			}
			continue
		}

		if resp, ok := msg.(*codec.Response); ok {
			c.requestDone(resp)
		}
	}
}

func (c *Client) reconnect() bool {
	for {
		select {
		case <-c.stopper.ShouldStop():
			return false
		case <-time.After(c.opts.reconnectInterval):
		}

		if c.isClosed() {
			return false
		}
		if err := c.connect(); err == nil {
			return true
		}
	}
}

func (c *Client) connect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.conn.Close()
	ok, err := c.conn.Connect(c.addr, c.opts.connectTimeout)
	if err == nil && !ok {
		err = errors.Newf("connect to %s failed", c.addr)
	}
	if err != nil {
		c.opts.logger.Error("fail to connect to server",
			log.RemoteAddressField(c.addr),
			zap.Error(err))
		return err
	}

	c.setConnected(true)
	c.opts.logger.Info("connected to server",
		log.RemoteAddressField(c.addr))
	return nil
}

func (c *Client) requestDone(resp *codec.Response) {
	c.mu.Lock()
	respC, ok := c.mu.inflight[resp.ID]
	if ok {
		delete(c.mu.inflight, resp.ID)
	}
	c.mu.Unlock()

	if ok {
		respC <- resp
	}
}

// failInflight wakes up all waiting requests with a nil response
func (c *Client) failInflight(err error) {
	c.mu.Lock()
	inflight := c.mu.inflight
	c.mu.inflight = make(map[uint64]chan *codec.Response)
	c.mu.Unlock()

	for id, respC := range inflight {
		if ce := c.opts.logger.Check(zap.DebugLevel, "request failed"); ce != nil {
			ce.Write(log.RequestIDField(id), zap.Error(err))
		}
		respC <- nil
	}
}

func (c *Client) inflightError() error {
	if c.isClosed() {
		return transport.ErrClosed
	}
	return transport.ErrConnectionClosed
}

func (c *Client) removeInflight(id uint64) {
	c.mu.Lock()
	delete(c.mu.inflight, id)
	c.mu.Unlock()
}

func (c *Client) setConnected(value bool) {
	c.mu.Lock()
	c.mu.connected = value
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.closed
}
