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

// Package security configures the PLAIN and CURVE mechanisms of a socket.
//
// Each value implements api.Security and is applied before the socket binds
// or connects:
//
//	err := security.CurveClient{ServerKey: srv, PublicKey: pub, SecretKey: sec}.Apply(sock)
package security

import (
	"errors"

	"github.com/srediag/plugin-zmq/api"
	internalsec "github.com/srediag/plugin-zmq/internal/security"
)

// ErrNoUser is returned by PlainClient without a user name.
var ErrNoUser = errors.New("security: PLAIN client needs a user name")

// PlainServer accepts PLAIN clients. ZAPDomain selects the ZAP handler.
type PlainServer struct {
	ZAPDomain string
}

func (PlainServer) Mechanism() string { return "PLAIN" }

func (p PlainServer) Apply(s api.OptionSetter) error {
	if err := s.SetOptionByName("plain_server", 1); err != nil {
		return err
	}
	return zapDomain(s, p.ZAPDomain)
}

// PlainClient authenticates with a user name and password.
type PlainClient struct {
	User     string
	Password string
}

func (PlainClient) Mechanism() string { return "PLAIN" }

func (p PlainClient) Apply(s api.OptionSetter) error {
	if p.User == "" {
		return ErrNoUser
	}
	if err := s.SetOptionByName("plain_username", p.User); err != nil {
		return err
	}
	return s.SetOptionByName("plain_password", p.Password)
}

// CurveServer serves CURVE with its secret key.
type CurveServer struct {
	SecretKey []byte
	ZAPDomain string
}

func (CurveServer) Mechanism() string { return "CURVE" }

func (c CurveServer) Apply(s api.OptionSetter) error {
	if err := internalsec.CheckCurveKey("secret key", c.SecretKey); err != nil {
		return err
	}
	if err := s.SetOptionByName("curve_server", 1); err != nil {
		return err
	}
	if err := s.SetOptionByName("curve_secretkey", c.SecretKey); err != nil {
		return err
	}
	return zapDomain(s, c.ZAPDomain)
}

// CurveClient connects to a CURVE server whose public key is ServerKey.
type CurveClient struct {
	ServerKey []byte
	PublicKey []byte
	SecretKey []byte
}

func (CurveClient) Mechanism() string { return "CURVE" }

func (c CurveClient) Apply(s api.OptionSetter) error {
	keys := []struct {
		name string
		key  []byte
	}{
		{"curve_serverkey", c.ServerKey},
		{"curve_publickey", c.PublicKey},
		{"curve_secretkey", c.SecretKey},
	}
	for _, k := range keys {
		if err := internalsec.CheckCurveKey(k.name, k.key); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if err := s.SetOptionByName(k.name, k.key); err != nil {
			return err
		}
	}
	return nil
}

func zapDomain(s api.OptionSetter, domain string) error {
	if domain == "" {
		return nil
	}
	return s.SetOptionByName("zap_domain", domain)
}

var (
	_ api.Security = PlainServer{}
	_ api.Security = PlainClient{}
	_ api.Security = CurveServer{}
	_ api.Security = CurveClient{}
)
