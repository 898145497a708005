// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package command contains the building blocks for MongoDB write commands.
// It defines the namespace a command targets, the three write command kinds
// a batch can hold, and the per-operation entry documents (update and
// delete entries) that a batch carries to the transport. Wire encoding of
// the assembled command is left to the transport.
package command
