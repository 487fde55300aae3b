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

// MonitorLayout is the framing of monitor events.
type MonitorLayout int

const (
	// MonitorLayoutLegacy is one frame: uint16 event, int32 value, endpoint
	// bytes. It is not libzmq 3.2's zmq_event_t struct. The libzmq transport
	// needs libzmq 4 or newer, so only the fake transport produces it.
	MonitorLayoutLegacy MonitorLayout = iota
	// MonitorLayoutTwoFrame is uint16 event, uint32 value, then the endpoint as a second frame.
	MonitorLayoutTwoFrame
)

// Capabilities is derived once from the library version and consulted
// instead of branching on versions at every call site.
type Capabilities struct {
	Major, Minor, Patch int

	HasUnbind     bool
	HasDisconnect bool
	HasMonitor    bool
	MonitorLayout MonitorLayout

	// AtomicMultipart means every part of a message is available once the
	// first one is, so readiness is not re-checked between parts. It is only
	// false for the fake transport posing as libzmq 2.
	AtomicMultipart bool

	HasCurve           bool
	HasConflate        bool
	HasContextMaxMsgsz bool
}

// DetectCapabilities maps a library version to its capabilities.
func DetectCapabilities(major, minor, patch int) Capabilities {
	v := major*10000 + minor*100 + patch
	c := Capabilities{Major: major, Minor: minor, Patch: patch}
	c.HasUnbind = v >= 30200
	c.HasDisconnect = v >= 30200
	c.HasMonitor = v >= 30200
	if major >= 4 {
		c.MonitorLayout = MonitorLayoutTwoFrame
	}
	c.AtomicMultipart = major >= 3
	c.HasCurve = major >= 4
	c.HasConflate = major >= 4
	c.HasContextMaxMsgsz = v >= 40200
	return c
}

// AtLeast reports whether the library version is major.minor or newer.
func (c Capabilities) AtLeast(major, minor int) bool {
	return c.Major > major || (c.Major == major && c.Minor >= minor)
}
