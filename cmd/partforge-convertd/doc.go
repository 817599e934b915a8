// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Partforge-convertd is the STEP conversion daemon. It accepts CAD
// exchange files over HTTP, runs the external converter inside a
// bubblewrap sandbox, and returns validated triangle meshes. The
// converter never gets network access; every conversion runs in a
// fresh temp directory that is removed when the request ends.
package main
