// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// The Basalt library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The Basalt library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the Basalt library. If not, see <http://www.gnu.org/licenses/>.

// Package types defines the core data model shared by every consensus
// component: validators, views, votes, quorum certificates, blocks and
// evidence.
package types
