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

package server

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/fagongzi/goetty"
	"github.com/lni/goutils/syncutil"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/metric"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/matrixorigin/cubewriter/transport/codec"
	"go.uber.org/zap"
)

// Handler serves the requests received by the server
type Handler interface {
	transport.Transport
	schema.Provider

	GetRow(ctx context.Context, table string, pk row.PrimaryKey) (transport.GetRowResponse, error)
}

// Server is the tcp server of the table store
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	handler Handler
	app     goetty.NetApplication
	stopper *syncutil.Stopper
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewServer returns a server serving requests with the handler
func NewServer(cfg config.ServerConfig, handler Handler, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  log.Adjust(logger).Named("server"),
		handler: handler,
		stopper: syncutil.NewStopper(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	readBuf := int(cfg.ReadBufferSize)
	encoder, decoder := codec.NewCodec(int(cfg.MaxBodySize))
	app, err := goetty.NewTCPApplication(cfg.Addr, s.onMessage,
		goetty.WithAppSessionOptions(goetty.WithCodec(encoder, decoder),
			goetty.WithEnableAsyncWrite(cfg.SendBatch),
			goetty.WithBufSize(readBuf, readBuf),
			goetty.WithLogger(s.logger.Named("session"))))
	if err != nil {
		return nil, errors.Wrapf(err, "create server at %s", cfg.Addr)
	}
	s.app = app
	return s, nil
}

// Start starts listening
func (s *Server) Start() error {
	if err := s.app.Start(); err != nil {
		return err
	}
	s.logger.Info("server started",
		log.ListenAddressField(s.cfg.Addr))
	return nil
}

// Stop stops listening and waits for the pending responses
func (s *Server) Stop() {
	s.cancel()
	s.app.Stop()
	s.stopper.Stop()
	s.logger.Info("server stopped",
		log.ListenAddressField(s.cfg.Addr))
}

func (s *Server) onMessage(rs goetty.IOSession, msg interface{}, seq uint64) error {
	req, ok := msg.(*codec.Request)
	if !ok {
		s.logger.Error("receive unexpected message, close session",
			log.RemoteAddressField(rs.RemoteAddr()),
			zap.Any("message", msg))
		return errors.Newf("unexpected message %T", msg)
	}

	metric.IncServerRequest(req.Type.String())
	if ce := s.logger.Check(zap.DebugLevel, "receive request"); ce != nil {
		ce.Write(log.RequestIDField(req.ID),
			log.TableField(req.Table),
			zap.String("type", req.Type.String()))
	}

	resp := &codec.Response{ID: req.ID, Type: req.Type}
	switch req.Type {
	case codec.TypeBatchWriteRow:
		if req.BatchWriteRow == nil {
			s.reply(rs, withError(resp, transport.NewRowError(transport.ParameterInvalid, "missing rows")))
			return nil
		}
		f := s.handler.BatchWriteRow(s.ctx, req.BatchWriteRow)
		s.stopper.RunWorker(func() {
			value, err := f.Get(s.ctx)
			if err != nil {
				s.reply(rs, withError(resp, err))
				return
			}
			resp.BatchWriteRow = value
			s.reply(rs, resp)
		})
	case codec.TypeDescribeTable:
		meta, err := s.handler.DescribeTable(s.ctx, req.Table)
		if err != nil {
			s.reply(rs, withError(resp, err))
			return nil
		}
		resp.Table = &meta
		s.reply(rs, resp)
	case codec.TypeGetRow:
		if req.PrimaryKey == nil {
			s.reply(rs, withError(resp, transport.NewRowError(transport.ParameterInvalid, "missing primary key")))
			return nil
		}
		value, err := s.handler.GetRow(s.ctx, req.Table, *req.PrimaryKey)
		if err != nil {
			s.reply(rs, withError(resp, err))
			return nil
		}
		resp.Row = &value
		s.reply(rs, resp)
	default:
		s.reply(rs, withError(resp, transport.NewRowError(transport.ParameterInvalid,
			"unknown request type %d", req.Type)))
	}
	return nil
}

func (s *Server) reply(rs goetty.IOSession, resp *codec.Response) {
	if err := rs.WriteAndFlush(resp); err != nil {
		s.logger.Error("fail to send response",
			log.RequestIDField(resp.ID),
			log.RemoteAddressField(rs.RemoteAddr()),
			zap.Error(err))
	}
}

func withError(resp *codec.Response, err error) *codec.Response {
	var re *transport.RowError
	if errors.As(err, &re) {
		resp.Code = re.Code
		resp.Error = re.Message
		return resp
	}

	resp.Code = transport.InternalServerError
	if errors.Is(err, transport.ErrClosed) {
		resp.Code = transport.ServerUnavailable
	}
	resp.Error = err.Error()
	return resp
}
