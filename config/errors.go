// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package config

import "errors"

// ErrFatal wraps every startup-time error spec.md §6/§7 classifies as
// fatal, so callers can recognise it with errors.Is. cmd/basalt exits
// with code 1 on any error its Run action returns, wrapped in ErrFatal
// or not.
var ErrFatal = errors.New("fatal startup error")
