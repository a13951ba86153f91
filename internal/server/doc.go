// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package server wires and runs the daemon's control API together with its
// background workers.
//
// It owns the process lifecycle: startup, signal handling and the ordered
// graceful shutdown in which the API stops accepting requests before the
// workers perform their final sync flush.
package server
