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

package api

// Socket option codes, libzmq numbering.
const (
	OptAffinity          = 4
	OptIdentity          = 5
	OptSubscribe         = 6
	OptUnsubscribe       = 7
	OptRate              = 8
	OptRecoveryIvl       = 9
	OptSndbuf            = 11
	OptRcvbuf            = 12
	OptRcvmore           = 13
	OptFd                = 14
	OptEvents            = 15
	OptType              = 16
	OptLinger            = 17
	OptReconnectIvl      = 18
	OptBacklog           = 19
	OptReconnectIvlMax   = 21
	OptMaxmsgsize        = 22
	OptSndhwm            = 23
	OptRcvhwm            = 24
	OptMulticastHops     = 25
	OptRcvtimeo          = 27
	OptSndtimeo          = 28
	OptLastEndpoint      = 32
	OptRouterMandatory   = 33
	OptTCPKeepalive      = 34
	OptTCPKeepaliveCnt   = 35
	OptTCPKeepaliveIdle  = 36
	OptTCPKeepaliveIntvl = 37
	OptImmediate         = 39
	OptXpubVerbose       = 40
	OptIPv6              = 42
	OptMechanism         = 43
	OptPlainServer       = 44
	OptPlainUsername     = 45
	OptPlainPassword     = 46
	OptCurveServer       = 47
	OptCurvePublickey    = 48
	OptCurveSecretkey    = 49
	OptCurveServerkey    = 50
	OptProbeRouter       = 51
	OptReqCorrelate      = 52
	OptReqRelaxed        = 53
	OptConflate          = 54
	OptZapDomain         = 55
)

// Context option codes.
const (
	CtxIOThreads  = 1
	CtxMaxSockets = 2
	CtxMaxMsgsz   = 5
	CtxIPv6       = 42
	CtxBlocky     = 70
)

// Monitor event bits.
const (
	EventConnected      = 0x0001
	EventConnectDelayed = 0x0002
	EventConnectRetried = 0x0004
	EventListening      = 0x0008
	EventBindFailed     = 0x0010
	EventAccepted       = 0x0020
	EventAcceptFailed   = 0x0040
	EventClosed         = 0x0080
	EventCloseFailed    = 0x0100
	EventDisconnected   = 0x0200
	EventMonitorStopped = 0x0400
	EventAll            = 0xffff
)
