/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package zmq

import (
	"github.com/srediag/plugin-zmq/internal/transport"
)

// SetOption writes a socket option. value must match the option kind: int,
// int32, int64 or bool for KindInt; int or uint32 for KindUint32; int or
// int64 for KindInt64; int, uint or uint64 for KindUint64; []byte or string
// for KindBinary. Any other value is rejected before the library is called.
func (s *Socket) SetOption(o Option, value interface{}) error {
	const op = "setsockopt"
	if err := s.guard(op); err != nil {
		return err
	}
	spec, err := lookupOption(op, o, writable, s.caps)
	if err != nil {
		return err
	}
	v, err := coerce(op, o, spec.kind, value)
	if err != nil {
		return err
	}
	code := int(o)
	err = transport.Retry(func() error {
		switch spec.kind {
		case KindInt64:
			return s.native.SetInt64(code, v.(int64))
		case KindUint64:
			return s.native.SetUint64(code, v.(uint64))
		case KindBinary:
			return s.native.SetBytes(code, v.([]byte))
		default:
			return s.native.SetInt(code, v.(int))
		}
	})
	if err != nil {
		return transportError(op, o.String(), err)
	}
	return nil
}

// GetOption reads a socket option as int, uint32, int64, uint64 or []byte
// depending on its kind.
func (s *Socket) GetOption(o Option) (interface{}, error) {
	const op = "getsockopt"
	if err := s.guard(op); err != nil {
		return nil, err
	}
	spec, err := lookupOption(op, o, readable, s.caps)
	if err != nil {
		return nil, err
	}
	code := int(o)
	v, err := transport.RetryValue(func() (interface{}, error) {
		switch spec.kind {
		case KindUint32:
			v, err := s.native.GetInt(code)
			return uint32(v), err
		case KindInt64:
			return s.native.GetInt64(code)
		case KindUint64:
			return s.native.GetUint64(code)
		case KindBinary:
			return s.native.GetBytes(code)
		default:
			return s.native.GetInt(code)
		}
	})
	if err != nil {
		return nil, transportError(op, o.String(), err)
	}
	return v, nil
}

// SetOptionByName is SetOption with an option name such as "linger" or
// "ZMQ_SNDHWM".
func (s *Socket) SetOptionByName(name string, value interface{}) error {
	o, err := OptionByName(name)
	if err != nil {
		return err
	}
	return s.SetOption(o, value)
}

// GetOptionByName is GetOption with an option name.
func (s *Socket) GetOptionByName(name string) (interface{}, error) {
	o, err := OptionByName(name)
	if err != nil {
		return nil, err
	}
	return s.GetOption(o)
}
