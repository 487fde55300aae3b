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

// OptionSetter sets socket options by name, "plain_username" or "ZMQ_PLAIN_USERNAME".
type OptionSetter interface {
	SetOptionByName(name string, value any) error
}

// Security configures the authentication mechanism of a socket. It is
// applied before the socket binds or connects.
type Security interface {
	Mechanism() string
	Apply(s OptionSetter) error
}
