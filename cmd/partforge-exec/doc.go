// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Partforge-exec runs a geometry script through a supervised sandbox
// session and prints the result as JSON. It speaks the same message
// protocol the embedding host uses, so a script that works here
// behaves identically inside the server.
package main
