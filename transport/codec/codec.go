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

package codec

import (
	"github.com/cockroachdb/errors"
	"github.com/fagongzi/goetty/buf"
	"github.com/fagongzi/goetty/codec"
	"github.com/fagongzi/goetty/codec/length"
	jsoniter "github.com/json-iterator/go"
)

const (
	flagRequest  byte = 1
	flagResponse byte = 2

	// DefaultMaxBodySize max size of a rpc message
	DefaultMaxBodySize = 1024 * 1024 * 64
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type rpcDecoder struct {
}

type rpcEncoder struct {
}

// NewCodec returns the length field based codec of requests and responses
func NewCodec(maxBodySize int) (codec.Encoder, codec.Decoder) {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return length.NewWithSize(rpcEncoder{}, rpcDecoder{}, 0, 0, 0, maxBodySize)
}

func (decoder rpcDecoder) Decode(in *buf.ByteBuf) (bool, interface{}, error) {
	flag, err := in.ReadByte()
	if err != nil {
		return true, nil, err
	}

	data := in.GetMarkedRemindData()
	switch flag {
	case flagRequest:
		req := &Request{}
		if err := json.Unmarshal(data, req); err != nil {
			return true, nil, errors.Wrap(err, "decode request")
		}
		in.MarkedBytesReaded()
		return true, req, nil
	case flagResponse:
		resp := &Response{}
		if err := json.Unmarshal(data, resp); err != nil {
			return true, nil, errors.Wrap(err, "decode response")
		}
		in.MarkedBytesReaded()
		return true, resp, nil
	}

	return false, nil, errors.Newf("not support msg flag %d", flag)
}

func (e rpcEncoder) Encode(data interface{}, out *buf.ByteBuf) error {
	var flag byte
	switch data.(type) {
	case *Request:
		flag = flagRequest
	case *Response:
		flag = flagResponse
	default:
		return errors.Newf("not support msg type %T", data)
	}

	value, err := json.Marshal(data)
	if err != nil {
		return err
	}

	size := len(value)
	out.WriteByte(flag)
	if size > 0 {
		index := out.GetWriteIndex()
		out.Expansion(size)
		copy(out.RawBuf()[index:index+size], value)
		out.SetWriterIndex(index + size)
	}
	return nil
}
