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
	"fmt"
	"strings"

	"github.com/srediag/plugin-zmq/api"
)

// Option is a socket option code, libzmq numbering.
type Option int

const (
	OptAffinity          Option = api.OptAffinity
	OptIdentity          Option = api.OptIdentity
	OptSubscribe         Option = api.OptSubscribe
	OptUnsubscribe       Option = api.OptUnsubscribe
	OptRate              Option = api.OptRate
	OptRecoveryIvl       Option = api.OptRecoveryIvl
	OptSndbuf            Option = api.OptSndbuf
	OptRcvbuf            Option = api.OptRcvbuf
	OptRcvmore           Option = api.OptRcvmore
	OptFd                Option = api.OptFd
	OptEvents            Option = api.OptEvents
	OptType              Option = api.OptType
	OptLinger            Option = api.OptLinger
	OptReconnectIvl      Option = api.OptReconnectIvl
	OptBacklog           Option = api.OptBacklog
	OptReconnectIvlMax   Option = api.OptReconnectIvlMax
	OptMaxmsgsize        Option = api.OptMaxmsgsize
	OptSndhwm            Option = api.OptSndhwm
	OptRcvhwm            Option = api.OptRcvhwm
	OptMulticastHops     Option = api.OptMulticastHops
	OptRcvtimeo          Option = api.OptRcvtimeo
	OptSndtimeo          Option = api.OptSndtimeo
	OptLastEndpoint      Option = api.OptLastEndpoint
	OptRouterMandatory   Option = api.OptRouterMandatory
	OptTCPKeepalive      Option = api.OptTCPKeepalive
	OptTCPKeepaliveCnt   Option = api.OptTCPKeepaliveCnt
	OptTCPKeepaliveIdle  Option = api.OptTCPKeepaliveIdle
	OptTCPKeepaliveIntvl Option = api.OptTCPKeepaliveIntvl
	OptImmediate         Option = api.OptImmediate
	OptXpubVerbose       Option = api.OptXpubVerbose
	OptIPv6              Option = api.OptIPv6
	OptMechanism         Option = api.OptMechanism
	OptPlainServer       Option = api.OptPlainServer
	OptPlainUsername     Option = api.OptPlainUsername
	OptPlainPassword     Option = api.OptPlainPassword
	OptCurveServer       Option = api.OptCurveServer
	OptCurvePublickey    Option = api.OptCurvePublickey
	OptCurveSecretkey    Option = api.OptCurveSecretkey
	OptCurveServerkey    Option = api.OptCurveServerkey
	OptProbeRouter       Option = api.OptProbeRouter
	OptReqCorrelate      Option = api.OptReqCorrelate
	OptReqRelaxed        Option = api.OptReqRelaxed
	OptConflate          Option = api.OptConflate
	OptZapDomain         Option = api.OptZapDomain
)

// Kind is the value type of an option.
type Kind int

const (
	KindInt Kind = iota
	KindUint32
	KindInt64
	KindUint64
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindBinary:
		return "binary"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type access uint8

const (
	readable access = 1 << iota
	writable

	rw = readable | writable
)

type optionSpec struct {
	name   string
	kind   Kind
	access access
	// first library version that knows the option, 0.0 for all
	major, minor int
}

var optionTable = map[Option]optionSpec{
	OptAffinity:          {"affinity", KindUint64, rw, 0, 0},
	OptIdentity:          {"identity", KindBinary, rw, 0, 0},
	OptSubscribe:         {"subscribe", KindBinary, writable, 0, 0},
	OptUnsubscribe:       {"unsubscribe", KindBinary, writable, 0, 0},
	OptRate:              {"rate", KindInt, rw, 0, 0},
	OptRecoveryIvl:       {"recovery_ivl", KindInt, rw, 0, 0},
	OptSndbuf:            {"sndbuf", KindInt, rw, 0, 0},
	OptRcvbuf:            {"rcvbuf", KindInt, rw, 0, 0},
	OptRcvmore:           {"rcvmore", KindInt, readable, 0, 0},
	OptFd:                {"fd", KindInt, readable, 0, 0},
	OptEvents:            {"events", KindUint32, readable, 0, 0},
	OptType:              {"type", KindInt, readable, 0, 0},
	OptLinger:            {"linger", KindInt, rw, 0, 0},
	OptReconnectIvl:      {"reconnect_ivl", KindInt, rw, 0, 0},
	OptBacklog:           {"backlog", KindInt, rw, 0, 0},
	OptReconnectIvlMax:   {"reconnect_ivl_max", KindInt, rw, 0, 0},
	OptMaxmsgsize:        {"maxmsgsize", KindInt64, rw, 0, 0},
	OptSndhwm:            {"sndhwm", KindInt, rw, 0, 0},
	OptRcvhwm:            {"rcvhwm", KindInt, rw, 0, 0},
	OptMulticastHops:     {"multicast_hops", KindInt, rw, 0, 0},
	OptRcvtimeo:          {"rcvtimeo", KindInt, rw, 0, 0},
	OptSndtimeo:          {"sndtimeo", KindInt, rw, 0, 0},
	OptLastEndpoint:      {"last_endpoint", KindBinary, readable, 3, 2},
	OptRouterMandatory:   {"router_mandatory", KindInt, writable, 3, 2},
	OptTCPKeepalive:      {"tcp_keepalive", KindInt, rw, 3, 2},
	OptTCPKeepaliveCnt:   {"tcp_keepalive_cnt", KindInt, rw, 3, 2},
	OptTCPKeepaliveIdle:  {"tcp_keepalive_idle", KindInt, rw, 3, 2},
	OptTCPKeepaliveIntvl: {"tcp_keepalive_intvl", KindInt, rw, 3, 2},
	OptImmediate:         {"immediate", KindInt, rw, 4, 0},
	OptXpubVerbose:       {"xpub_verbose", KindInt, writable, 3, 2},
	OptIPv6:              {"ipv6", KindInt, rw, 4, 0},
	OptMechanism:         {"mechanism", KindInt, readable, 4, 0},
	OptPlainServer:       {"plain_server", KindInt, rw, 4, 0},
	OptPlainUsername:     {"plain_username", KindBinary, rw, 4, 0},
	OptPlainPassword:     {"plain_password", KindBinary, rw, 4, 0},
	OptCurveServer:       {"curve_server", KindInt, rw, 4, 0},
	OptCurvePublickey:    {"curve_publickey", KindBinary, writable, 4, 0},
	OptCurveSecretkey:    {"curve_secretkey", KindBinary, writable, 4, 0},
	OptCurveServerkey:    {"curve_serverkey", KindBinary, writable, 4, 0},
	OptProbeRouter:       {"probe_router", KindInt, writable, 4, 0},
	OptReqCorrelate:      {"req_correlate", KindInt, writable, 4, 0},
	OptReqRelaxed:        {"req_relaxed", KindInt, writable, 4, 0},
	OptConflate:          {"conflate", KindInt, writable, 4, 0},
	OptZapDomain:         {"zap_domain", KindBinary, rw, 4, 0},
}

var optionAliases = map[string]Option{
	"routing_id":   OptIdentity,
	"_fd":          OptFd,
	"_ioevents":    OptEvents,
	"_receivemore": OptRcvmore,
	"_subscribe":   OptSubscribe,
	"_unsubscribe": OptUnsubscribe,
}

var optionNames = func() map[string]Option {
	m := make(map[string]Option, len(optionTable)+len(optionAliases))
	for o, s := range optionTable {
		m[s.name] = o
	}
	for n, o := range optionAliases {
		m[n] = o
	}
	return m
}()

// OptionByName resolves "ZMQ_LINGER", "linger" and the legacy aliases.
func OptionByName(name string) (Option, error) {
	n := name
	if strings.HasPrefix(strings.ToUpper(n), "ZMQ_") {
		n = n[4:]
	}
	if o, ok := optionNames[strings.ToLower(n)]; ok {
		return o, nil
	}
	return 0, invalidf("option", "unknown option %q", name)
}

func (o Option) String() string {
	if s, ok := optionTable[o]; ok {
		return "ZMQ_" + strings.ToUpper(s.name)
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// Kind returns the value type of o. Unknown options report KindInt.
func (o Option) Kind() Kind {
	return optionTable[o].kind
}

func lookupOption(op string, o Option, want access, caps api.Capabilities) (optionSpec, error) {
	s, ok := optionTable[o]
	if !ok {
		return s, invalidf(op, "unknown option %d", int(o))
	}
	if s.access&want == 0 {
		if want == readable {
			return s, invalidf(op, "%s is write-only", o)
		}
		return s, invalidf(op, "%s is read-only", o)
	}
	if !caps.AtLeast(s.major, s.minor) {
		return s, fmt.Errorf("%s %s: %w", op, o, ErrNotSupported)
	}
	return s, nil
}

// coerce converts a Go value to the representation of kind k. ints are
// accepted for every numeric kind when in range.
func coerce(op string, o Option, k Kind, value interface{}) (interface{}, error) {
	switch k {
	case KindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			if int64(int(v)) == v {
				return int(v), nil
			}
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
	case KindUint32:
		switch v := value.(type) {
		case uint32:
			return int(v), nil
		case int:
			if v >= 0 && v <= 1<<32-1 {
				return v, nil
			}
		}
	case KindInt64:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		}
	case KindUint64:
		switch v := value.(type) {
		case uint64:
			return v, nil
		case uint:
			return uint64(v), nil
		case int:
			if v >= 0 {
				return uint64(v), nil
			}
		}
	case KindBinary:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	}
	return nil, invalidf(op, "%s expects %s, got %T", o, k, value)
}

// ContextOption is a context option code.
type ContextOption int

const (
	CtxIOThreads  ContextOption = api.CtxIOThreads
	CtxMaxSockets ContextOption = api.CtxMaxSockets
	CtxMaxMsgsz   ContextOption = api.CtxMaxMsgsz
	CtxIPv6       ContextOption = api.CtxIPv6
	CtxBlocky     ContextOption = api.CtxBlocky
)

var contextOptionNames = map[string]ContextOption{
	"io_threads":  CtxIOThreads,
	"max_sockets": CtxMaxSockets,
	"max_msgsz":   CtxMaxMsgsz,
	"ipv6":        CtxIPv6,
	"blocky":      CtxBlocky,
}

// ContextOptionByName resolves "ZMQ_IO_THREADS" and "io_threads" style names.
func ContextOptionByName(name string) (ContextOption, error) {
	n := name
	if strings.HasPrefix(strings.ToUpper(n), "ZMQ_") {
		n = n[4:]
	}
	if o, ok := contextOptionNames[strings.ToLower(n)]; ok {
		return o, nil
	}
	return 0, invalidf("context option", "unknown option %q", name)
}

func (o ContextOption) valid() bool {
	for _, v := range contextOptionNames {
		if v == o {
			return true
		}
	}
	return false
}
